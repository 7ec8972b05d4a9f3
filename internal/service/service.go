// Package service wires the application together: datastore, AI provider
// clients, the processing pipeline and the HTTP server. The cmd packages
// call into it.
package service

import (
	"fmt"
	"log"

	"github.com/rmoura/notara-go/internal/ai"
	"github.com/rmoura/notara-go/internal/chatgpt"
	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/datastore"
	"github.com/rmoura/notara-go/internal/notification"
	"github.com/rmoura/notara-go/internal/observability"
	"github.com/rmoura/notara-go/internal/perplexity"
	"github.com/rmoura/notara-go/internal/whatsapp"
)

// Runtime holds the application's long-lived components.
type Runtime struct {
	Settings   *conf.Settings
	Store      datastore.Interface
	ChatGPT    *chatgpt.Client
	Perplexity *perplexity.Client
	WhatsApp   *whatsapp.Service
	Processor  *ai.Processor
	Metrics    *observability.Metrics
	Notifier   *notification.Notifier
}

// NewRuntime opens the datastore and builds every configured component.
// Provider clients without credentials are left nil and the pipeline runs
// without the stages they serve.
func NewRuntime(settings *conf.Settings) (*Runtime, error) {
	store := datastore.New(settings)
	if store == nil {
		return nil, fmt.Errorf("no database backend enabled in configuration")
	}
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	rt := &Runtime{Settings: settings, Store: store}

	metrics, err := observability.NewMetrics()
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	rt.Metrics = metrics

	if settings.ChatGPT.APIKey != "" {
		client, err := chatgpt.NewClient(chatgpt.ConfigFromSettings(settings))
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to create ChatGPT client: %w", err)
		}
		client.SetMetrics(metrics.Provider)
		rt.ChatGPT = client
	} else {
		log.Println("ChatGPT API key not configured, note analysis is disabled")
	}

	if settings.Perplexity.APIKey != "" {
		client, err := perplexity.NewClient(perplexity.ConfigFromSettings(settings))
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to create Perplexity client: %w", err)
		}
		client.SetMetrics(metrics.Provider)
		rt.Perplexity = client
	} else {
		log.Println("Perplexity API key not configured, external search is disabled")
	}

	if settings.WhatsApp.Enabled {
		rt.WhatsApp = whatsapp.New(settings, store)
	}

	notifier, err := notification.New(settings)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize notifications: %w", err)
	}
	rt.Notifier = notifier

	var analysis ai.AnalysisClient
	if rt.ChatGPT != nil {
		analysis = rt.ChatGPT
	}
	var search ai.SearchClient
	if rt.Perplexity != nil {
		search = rt.Perplexity
	}
	var messenger ai.Messenger
	if rt.WhatsApp != nil {
		messenger = rt.WhatsApp
	}

	processor := ai.New(settings, store, analysis, search, messenger)
	processor.SetMetrics(metrics.Pipeline)
	if notifier.Enabled() {
		processor.SetNotifier(notifier)
	}
	rt.Processor = processor

	return rt, nil
}

// Close releases every component the runtime owns.
func (rt *Runtime) Close() {
	if rt.Processor != nil {
		rt.Processor.Close()
	}
	if rt.ChatGPT != nil {
		rt.ChatGPT.Close()
	}
	if rt.Perplexity != nil {
		rt.Perplexity.Close()
	}
	if rt.WhatsApp != nil {
		rt.WhatsApp.Close()
	}
	if rt.Store != nil {
		if err := rt.Store.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
}
