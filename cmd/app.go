package cmd

import (
	"fmt"
	"log/slog"

	"github.com/neuropathx/neuropathx/internal/clinical"
	"github.com/neuropathx/neuropathx/internal/config"
	"github.com/neuropathx/neuropathx/internal/diagnosis"
	"github.com/neuropathx/neuropathx/internal/history"
	"github.com/neuropathx/neuropathx/internal/persist"
	"github.com/neuropathx/neuropathx/internal/samples"
	"github.com/neuropathx/neuropathx/internal/session"
)

// app builds the collaborators every command shares from the loaded config
type app struct {
	cfg *config.Config
}

func (a *app) client() *diagnosis.Client {
	return diagnosis.NewClient(a.cfg.BaseURL(), a.cfg.API.RequestTimeout)
}

func (a *app) manifest() (*samples.Manifest, error) {
	if a.cfg.Samples.Manifest == "" {
		return samples.Default(), nil
	}
	return samples.Load(a.cfg.Samples.Manifest)
}

func (a *app) fetcher() *samples.Fetcher {
	return samples.NewFetcher(a.cfg.Samples.Root, a.cfg.Samples.FetchTimeout)
}

func (a *app) store() (*persist.Store, error) {
	dir, err := a.cfg.StateDir()
	if err != nil {
		return nil, err
	}
	return persist.NewStore(dir), nil
}

// journal is nil when history is disabled
func (a *app) journal() (*history.Journal, error) {
	if !a.cfg.History.Enabled {
		return nil, nil
	}
	path, err := a.cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.Open(path), nil
}

// sessionFactory returns a constructor for sessions wired to the classifier,
// the clinical catalog, persisted state and the history journal.
func (a *app) sessionFactory() (func(id string) (*session.Session, error), error) {
	catalog, err := clinical.Load(a.cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	journal, err := a.journal()
	if err != nil {
		return nil, err
	}
	client := a.client()

	return func(id string) (*session.Session, error) {
		sess := session.New(id, session.Options{
			Classifier: client,
			Catalog:    catalog,
			SlowAfter:  a.cfg.API.SlowStartAfter,
		})
		if err := persist.Bind(sess, store, sess.ID); err != nil {
			return nil, fmt.Errorf("failed to restore session state: %w", err)
		}
		if journal != nil {
			history.Bind(sess, journal)
		}
		slog.Debug("Session created", "session", sess.ID)
		return sess, nil
	}, nil
}
