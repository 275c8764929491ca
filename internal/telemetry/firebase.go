package telemetry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"smartbin-backend/internal/ingest"
	"smartbin-backend/internal/models"
)

// DefaultPollInterval is how often each watched sensor path is read. The
// Go Admin SDK has no streaming listener for the Realtime Database, so the
// source polls and synthesizes pushes on change.
const DefaultPollInterval = 5 * time.Second

// RTDBSource reads sensor documents from the Firebase Realtime Database.
// Each sensor writes under <basePath>/<binName>:
//
//	{"distance(cm)": 41.2, "trashLevel": 60, "gps": {...}}
type RTDBSource struct {
	client       *db.Client
	basePath     string
	pollInterval time.Duration
}

// NewRTDBSource initializes the Firebase app from a credentials file and
// returns a source rooted at basePath.
func NewRTDBSource(ctx context.Context, credentialsFile, databaseURL, basePath string, pollInterval time.Duration) (*RTDBSource, error) {
	opt := option.WithCredentialsFile(credentialsFile)
	return newRTDBSource(ctx, databaseURL, basePath, pollInterval, opt)
}

// NewRTDBSourceFromBase64 initializes from base64-encoded credentials.
// This is useful for cloud deployments (Railway, Fly.io, Render) where you
// can't upload files easily.
func NewRTDBSourceFromBase64(ctx context.Context, credentialsBase64, databaseURL, basePath string, pollInterval time.Duration) (*RTDBSource, error) {
	credentialsJSON, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("error decoding base64 credentials: %w", err)
	}
	opt := option.WithCredentialsJSON(credentialsJSON)
	return newRTDBSource(ctx, databaseURL, basePath, pollInterval, opt)
}

func newRTDBSource(ctx context.Context, databaseURL, basePath string, pollInterval time.Duration, opt option.ClientOption) (*RTDBSource, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting database client: %w", err)
	}

	return &RTDBSource{
		client:       client,
		basePath:     basePath,
		pollInterval: pollInterval,
	}, nil
}

// subscription is the caller-owned handle for one bin's poll loop.
type subscription struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// Unsubscribe stops the poll loop and blocks until it has fully exited,
// guaranteeing no callback fires after return.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

// Subscribe starts polling the bin's sensor path and invokes fn whenever
// the stored document changes.
func (r *RTDBSource) Subscribe(binName string, fn func(models.TelemetryPayload, time.Time)) (ingest.Subscription, error) {
	sub := &subscription{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	ref := r.client.NewRef(r.basePath + "/" + binName)
	go r.poll(binName, ref, fn, sub)
	return sub, nil
}

func (r *RTDBSource) poll(binName string, ref *db.Ref, fn func(models.TelemetryPayload, time.Time), sub *subscription) {
	defer close(sub.done)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	var last []byte
	for {
		select {
		case <-sub.stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), r.pollInterval)
		var payload models.TelemetryPayload
		err := ref.Get(ctx, &payload)
		cancel()
		if err != nil {
			// Transient feed failure: skip this tick, try again on the next.
			log.Printf("⚠️  Telemetry read failed for %s: %v", binName, err)
			continue
		}

		snapshot, err := json.Marshal(payload)
		if err != nil {
			log.Printf("⚠️  Telemetry snapshot for %s not comparable: %v", binName, err)
			continue
		}
		if string(snapshot) == string(last) {
			continue // nothing new from the sensor
		}
		last = snapshot

		select {
		case <-sub.stop:
			// Torn down between read and dispatch; drop the reading.
			return
		default:
			fn(payload, time.Now())
		}
	}
}
