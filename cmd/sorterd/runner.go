package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/milk9111/boxsorter/ecs"
	"github.com/milk9111/boxsorter/ecs/system"
	"github.com/milk9111/boxsorter/eventlog"
	"github.com/milk9111/boxsorter/ledger"
	"github.com/milk9111/boxsorter/observer"
	"github.com/milk9111/boxsorter/prefabs"
	"github.com/milk9111/boxsorter/sim"
)

type config struct {
	Scene         string
	Seed          int64
	TPS           int
	Ticks         uint64
	DBPath        string
	EventsDir     string
	ObserveAddr   string
	SnapshotEvery int
	Debug         bool
	Watch         bool
}

func defaultConfig() config {
	return config{
		Scene:         prefabs.DefaultScene,
		Seed:          1,
		TPS:           60,
		SnapshotEvery: 6,
	}
}

type runner struct {
	cfg config
	log *zap.Logger
	sim *sim.Sim

	ledger   *ledger.SQLiteLedger
	events   *eventlog.JSONLZstdWriter
	observer *observer.Server
	http     *http.Server
	watcher  *prefabs.Watcher

	deposits  int
	rejected  int
	collected int
	logErrors int
}

type summary struct {
	Ticks      uint64
	Spawned    int
	Collected  int
	Deposits   int
	Rejected   int
	ZoneTotals map[string]int
	Dropped    uint64
}

func (s summary) log(l *zap.Logger) {
	l.Info("run finished",
		zap.Uint64("ticks", s.Ticks),
		zap.Int("spawned", s.Spawned),
		zap.Int("collected", s.Collected),
		zap.Int("deposits", s.Deposits),
		zap.Int("rejected", s.Rejected),
		zap.Any("zones", s.ZoneTotals),
		zap.Uint64("ledger_dropped", s.Dropped),
	)
}

func newRunner(cfg config, log *zap.Logger) (*runner, error) {
	spec, err := prefabs.LoadScene(cfg.Scene)
	if err != nil {
		return nil, err
	}

	r := &runner{cfg: cfg, log: log}

	if cfg.DBPath != "" {
		r.ledger, err = ledger.OpenSQLite(cfg.DBPath, ledger.Run{Scene: spec.Name, Seed: cfg.Seed}, r.log)
		if err != nil {
			return nil, err
		}
		log.Info("ledger opened", zap.String("path", cfg.DBPath), zap.String("run", r.ledger.Run().ID))
	}
	if cfg.EventsDir != "" {
		r.events = eventlog.NewJSONLZstdWriter(cfg.EventsDir, "events")
	}

	r.sim, err = sim.New(spec, sim.Options{Seed: cfg.Seed, Log: log, OnEvent: r.onEvent})
	if err != nil {
		_ = r.Close()
		return nil, err
	}

	if cfg.ObserveAddr != "" {
		if err := r.startObserver(); err != nil {
			_ = r.Close()
			return nil, err
		}
	}
	if cfg.Watch {
		if w, err := prefabs.NewWatcher("prefabs", "prefabs/scripts"); err != nil {
			log.Warn("prefab hot reload disabled", zap.Error(err))
		} else {
			r.watcher = w
		}
	}
	return r, nil
}

func (r *runner) startObserver() error {
	r.observer = observer.NewServer(observer.Options{Log: r.log})
	mux := http.NewServeMux()
	mux.Handle("/ws", r.observer.Handler())

	ln, err := net.Listen("tcp", r.cfg.ObserveAddr)
	if err != nil {
		return fmt.Errorf("observer: listen: %w", err)
	}
	r.http = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := r.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error("observer server stopped", zap.Error(err))
		}
	}()
	r.log.Info("observer listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Run steps the simulation until ctx is done or the tick budget is spent.
func (r *runner) Run(ctx context.Context) (summary, error) {
	dt := 1.0 / 60
	var tick <-chan time.Time
	if r.cfg.TPS > 0 {
		dt = 1.0 / float64(r.cfg.TPS)
		t := time.NewTicker(time.Second / time.Duration(r.cfg.TPS))
		defer t.Stop()
		tick = t.C
	}

	w := r.sim.World()
loop:
	for r.cfg.Ticks == 0 || w.Tick() < r.cfg.Ticks {
		if tick != nil {
			select {
			case <-ctx.Done():
				break loop
			case <-tick:
			}
		} else if ctx.Err() != nil {
			break
		}

		r.pollReload()
		r.sim.Step(dt)

		if r.observer != nil && r.cfg.SnapshotEvery > 0 && w.Tick()%uint64(r.cfg.SnapshotEvery) == 0 {
			if err := r.observer.Broadcast(r.sim.Snapshot()); err != nil {
				r.log.Warn("snapshot broadcast failed", zap.Error(err))
			}
		}
	}

	return r.summary(ctx)
}

func (r *runner) pollReload() {
	if r.watcher == nil {
		return
	}
	for {
		select {
		case ch, ok := <-r.watcher.Events:
			if !ok {
				r.watcher = nil
				return
			}
			if err := r.sim.Reload(r.cfg.Scene, ch); err != nil {
				r.log.Warn("prefab reload failed", zap.String("file", ch.Path), zap.Stringer("kind", ch.Kind), zap.Error(err))
			}
		default:
			return
		}
	}
}

func (r *runner) summary(ctx context.Context) (summary, error) {
	s := summary{
		Ticks:     r.sim.World().Tick(),
		Spawned:   r.sim.Spawner().Spawned(),
		Collected: r.collected,
		Deposits:  r.deposits,
		Rejected:  r.rejected,
	}
	if r.ledger == nil {
		s.ZoneTotals = make(map[string]int)
		for _, z := range r.sim.Snapshot().Zones {
			s.ZoneTotals[z.Name] = z.Count
		}
		return s, nil
	}

	// ctx may already be cancelled by the signal that ended the run.
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.ledger.Flush(fctx); err != nil {
		return s, err
	}
	totals, err := r.ledger.ZoneTotals(fctx)
	if err != nil {
		return s, err
	}
	s.ZoneTotals = totals
	s.Dropped = r.ledger.Dropped()
	return s, nil
}

func (r *runner) onEvent(ev ecs.Event) {
	tick := r.sim.World().Tick()

	switch data := ev.Data.(type) {
	case system.StateChangedEvent:
		if r.ledger != nil {
			r.ledger.RecordTransition(ledger.Transition{Tick: tick, Agent: data.Name, From: string(data.From), To: string(data.To)})
		}
	case system.CollectedEvent:
		r.collected++
	case system.DepositedEvent:
		if ev.Type == system.EventDepositRejected {
			r.rejected++
			break
		}
		r.deposits++
		if r.ledger != nil {
			r.ledger.RecordDeposit(ledger.Deposit{
				Tick:       tick,
				Agent:      data.Name,
				Zone:       data.ZoneName,
				Item:       data.Item.String(),
				Kind:       string(data.Kind),
				StackIndex: data.StackIndex,
				LocalY:     data.LocalY,
			})
		}
	}

	if r.events != nil {
		err := r.events.Write(eventlog.Entry{Tick: tick, Time: time.Now().UTC(), Type: ev.Type, Data: ev.Data})
		if err != nil {
			r.logErrors++
			if r.logErrors == 1 {
				r.log.Error("event log write failed", zap.Error(err))
			}
		}
	}
}

func (r *runner) Close() error {
	var errs []error
	if r.watcher != nil {
		errs = append(errs, r.watcher.Close())
	}
	if r.observer != nil {
		r.observer.Close()
	}
	if r.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		errs = append(errs, r.http.Shutdown(ctx))
		cancel()
	}
	if r.events != nil {
		errs = append(errs, r.events.Close())
	}
	if r.ledger != nil {
		errs = append(errs, r.ledger.Close())
	}
	return errors.Join(errs...)
}
