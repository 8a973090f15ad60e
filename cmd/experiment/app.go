package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/choice-experiment/internal/catalog"
	"github.com/danielpatrickdp/choice-experiment/internal/config"
	"github.com/danielpatrickdp/choice-experiment/internal/gate"
	"github.com/danielpatrickdp/choice-experiment/internal/logging"
	"github.com/danielpatrickdp/choice-experiment/internal/protocol"
	"github.com/danielpatrickdp/choice-experiment/internal/question"
	"github.com/danielpatrickdp/choice-experiment/internal/session"
	"github.com/danielpatrickdp/choice-experiment/internal/sheet"
)

// #region app
// app wires the catalog and the SQLite-backed collaborators shared by commands.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	catalog *catalog.Catalog
	sheet   *sheet.Store
	spool   *gate.Spool
	events  *logging.EventLog
	gate    *gate.Gate
}

func openApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	cat, err := loadCatalog(cfg.Catalog)
	if err != nil {
		return nil, err
	}

	st, err := sheet.NewStore(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open sheet: %w", err)
	}
	sp, err := gate.NewSpool(st.DB())
	if err != nil {
		st.Close()
		return nil, err
	}
	ev, err := logging.NewEventLog(st.DB(), logger)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		catalog: cat,
		sheet:   st,
		spool:   sp,
		events:  ev,
		gate:    gate.New(st, gate.WithSpool(sp), gate.WithLogger(logger)),
	}, nil
}

func (a *app) Close() error {
	return a.sheet.Close()
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

// machine builds the session machine for one protocol in the configured language.
func (a *app) machine(name protocol.Name) (*session.Machine, error) {
	r := question.NewRenderer(a.cfg.Lang)
	p, err := protocol.New(name, a.catalog, r)
	if err != nil {
		return nil, err
	}
	return session.NewMachine(p, a.catalog.Survey(r.Language()), a.gate,
		session.WithObserver(a.events),
		session.WithLogger(a.logger.With(zap.String("protocol", string(name))))), nil
}

func (a *app) resubmitter() *gate.Resubmitter {
	return gate.NewResubmitter(a.gate, a.spool, a.cfg.Resubmit())
}

// #endregion app
