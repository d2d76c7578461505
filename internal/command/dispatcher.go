package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/backend"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/fallback"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/state"
)

type Backend interface {
	TriggerEmergency(ctx context.Context, intersectionID string, dir domain.Direction) (*backend.CommandResponse, error)
	ClearEmergency(ctx context.Context, intersectionID string) (*backend.CommandResponse, error)
	Optimize(ctx context.Context, intersectionID string) (*backend.CommandResponse, error)
	DetectImage(ctx context.Context, intersectionID string, dir domain.Direction, img domain.ImageUpload) (*backend.DetectionResponse, error)
}

type ModeSource interface {
	Mode() domain.Mode
}

// AuditLog records every dispatched command.
type AuditLog interface {
	RecordCommand(ctx context.Context, req domain.CommandRequest, out domain.CommandOutcome) error
}

// ImageArchive keeps a copy of uploaded detection images.
type ImageArchive interface {
	ArchiveImage(ctx context.Context, requestID string, req domain.CommandRequest) (string, error)
}

type Config struct {
	Timeout     time.Duration
	RevertDelay time.Duration
}

// Dispatcher runs control commands with an optimistic PROCESSING marker,
// reconciles with the backend answer (or a local simulation while OFFLINE)
// and returns the marker to IDLE after RevertDelay.
type Dispatcher struct {
	backend Backend
	mode    ModeSource
	store   *state.Store
	synth   *fallback.Synthesizer
	clock   clockwork.Clock
	cfg     Config
	log     zerolog.Logger

	audit   AuditLog
	archive ImageArchive
}

func New(b Backend, mode ModeSource, store *state.Store, synth *fallback.Synthesizer, clock clockwork.Clock, cfg Config, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		backend: b,
		mode:    mode,
		store:   store,
		synth:   synth,
		clock:   clock,
		cfg:     cfg,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

func (d *Dispatcher) SetAuditLog(a AuditLog)         { d.audit = a }
func (d *Dispatcher) SetImageArchive(a ImageArchive) { d.archive = a }

// Dispatch returns an error only when the request is invalid. Backend
// failures are reported through the outcome and the FAILED marker.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.CommandRequest) (domain.CommandOutcome, error) {
	if err := req.Validate(); err != nil {
		return domain.CommandOutcome{}, err
	}

	requestID := uuid.NewString()
	key := req.MarkerKey()
	logger := d.log.With().
		Str("request_id", requestID).
		Str("kind", string(req.Kind)).
		Str("intersection_id", req.IntersectionID).
		Logger()

	if err := d.store.SetMarker(key, requestID, domain.MarkerProcessing); err != nil {
		return domain.CommandOutcome{}, fmt.Errorf("mark processing: %w", err)
	}

	if req.Kind == domain.CommandDetect && d.archive != nil {
		d.archiveImage(ctx, requestID, req, logger)
	}

	out := domain.CommandOutcome{RequestID: requestID, Kind: req.Kind}

	cctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	result, err := d.execute(cctx, req)
	cancel()

	final := domain.MarkerConfirmed
	switch {
	case err == nil:
		out.Succeeded = true
		out.Result = result
	case d.mode.Mode() == domain.ModeOffline:
		logger.Info().Err(err).Msg("backend offline, simulating command locally")
		out.Succeeded = true
		out.UsedFallback = true
		out.Result = d.simulate(req)
		final = domain.MarkerSimulated
	default:
		logger.Warn().Err(err).Msg("command failed")
		out.Error = err.Error()
		final = domain.MarkerFailed
	}

	if err := d.store.SetMarker(key, requestID, final); err != nil {
		logger.Error().Err(err).Msg("marker update rejected")
	}
	d.clock.AfterFunc(d.cfg.RevertDelay, func() {
		d.store.ResetMarker(key, requestID)
	})

	if d.audit != nil {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.Timeout)
		if err := d.audit.RecordCommand(actx, req, out); err != nil {
			logger.Warn().Err(err).Msg("failed to record command")
		}
		cancel()
	}
	return out, nil
}

func (d *Dispatcher) archiveImage(ctx context.Context, requestID string, req domain.CommandRequest, logger zerolog.Logger) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.Timeout)
	defer cancel()
	key, err := d.archive.ArchiveImage(actx, requestID, req)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to archive detection image")
		return
	}
	logger.Debug().Str("object_key", key).Msg("detection image archived")
}

func (d *Dispatcher) execute(ctx context.Context, req domain.CommandRequest) (any, error) {
	id := req.IntersectionID
	switch req.Kind {
	case domain.CommandEmergencyTrigger:
		resp, err := d.backend.TriggerEmergency(ctx, id, req.Direction)
		if err != nil {
			return nil, err
		}
		lights := parsedLights(resp.Signals)
		return d.store.UpdateSignal(id, func(cur domain.SignalState, _ bool) domain.SignalState {
			next := cur.PriorityTo(req.Direction)
			if lights != nil {
				next.PerDirection = lights
			}
			next.EmergencyMode = true
			return withCounts(next)
		}, domain.SourceCommand), nil

	case domain.CommandEmergencyClear:
		resp, err := d.backend.ClearEmergency(ctx, id)
		if err != nil {
			return nil, err
		}
		lights := parsedLights(resp.Signals)
		return d.store.UpdateSignal(id, func(cur domain.SignalState, _ bool) domain.SignalState {
			if lights != nil {
				cur.PerDirection = lights
			}
			cur.EmergencyMode = false
			return withCounts(cur)
		}, domain.SourceCommand), nil

	case domain.CommandOptimize:
		resp, err := d.backend.Optimize(ctx, id)
		if err != nil {
			return nil, err
		}
		lights := parsedLights(resp.Signals)
		if lights == nil {
			return resp, nil
		}
		return d.store.UpdateSignal(id, func(cur domain.SignalState, _ bool) domain.SignalState {
			cur.PerDirection = lights
			return withCounts(cur)
		}, domain.SourceCommand), nil

	case domain.CommandDetect:
		resp, err := d.backend.DetectImage(ctx, id, req.Direction, *req.Image)
		if err != nil {
			return nil, err
		}
		res, err := resp.Result(d.clock.Now())
		if err != nil {
			return nil, err
		}
		if res.IntersectionID == "" {
			res.IntersectionID = id
		}
		d.store.SetDetection(res, domain.SourceCommand)
		return res, nil
	}
	return nil, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidCommand, req.Kind)
}

// simulate applies the command's transition to local demo data.
func (d *Dispatcher) simulate(req domain.CommandRequest) any {
	id := req.IntersectionID
	base := func(cur domain.SignalState, found bool) domain.SignalState {
		if !found {
			return d.synth.SignalState(id)
		}
		return cur
	}

	switch req.Kind {
	case domain.CommandEmergencyTrigger:
		return d.store.UpdateSignal(id, func(cur domain.SignalState, found bool) domain.SignalState {
			next := base(cur, found).PriorityTo(req.Direction)
			next.EmergencyMode = true
			return withCounts(next)
		}, domain.SourceFallback)

	case domain.CommandEmergencyClear:
		return d.store.UpdateSignal(id, func(cur domain.SignalState, found bool) domain.SignalState {
			next := base(cur, found)
			next.EmergencyMode = false
			return withCounts(next)
		}, domain.SourceFallback)

	case domain.CommandOptimize:
		st := d.synth.SignalState(id)
		d.store.ReplaceSignal(st, domain.SourceFallback)
		return st

	case domain.CommandDetect:
		res := d.synth.Detection(id, req.Direction, d.clock.Now())
		d.store.SetDetection(res, domain.SourceFallback)
		return res
	}
	return nil
}

// parsedLights returns nil when the backend sent no usable signal map.
func parsedLights(raw map[string]string) map[domain.Direction]domain.LightColor {
	if len(raw) == 0 {
		return nil
	}
	lights, err := backend.ParseSignals(raw)
	if err != nil {
		return nil
	}
	return lights
}

func withCounts(st domain.SignalState) domain.SignalState {
	if st.VehicleCounts == nil {
		st.VehicleCounts = make(map[domain.Direction]int, 4)
	}
	for _, d := range domain.Directions() {
		if _, ok := st.VehicleCounts[d]; !ok {
			st.VehicleCounts[d] = 0
		}
	}
	if st.PerDirection == nil {
		st.PerDirection = make(map[domain.Direction]domain.LightColor, 4)
	}
	for _, d := range domain.Directions() {
		if _, ok := st.PerDirection[d]; !ok {
			st.PerDirection[d] = domain.Red
		}
	}
	return st
}
