package cnwlicense

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/coder/quartz"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/CloudNativeWorks/cnw-license-engine/cnwlicense/auditlog"
)

const tracerName = "github.com/CloudNativeWorks/cnw-license-engine/cnwlicense"

// An empty fingerprint would silently skip the device step.
var errEmptyFingerprint = errors.New("compute device fingerprint: empty")

// Gate is the application-side guard around AssertLicenseOK. It reads the
// license artifacts from disk, supplies the clock and device fingerprint, and
// reports each verdict to logs, metrics, traces and the audit log.
type Gate struct {
	cfg         Config
	clock       quartz.Clock
	logger      *zap.Logger
	recorder    auditlog.Recorder
	metrics     *Metrics
	tracer      trace.Tracer
	fingerprint func() (string, error)
	hostname    string
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) GateOption {
	return func(g *Gate) {
		g.logger = l
	}
}

// WithClock sets the clock that provides "today". Default: quartz.NewReal().
func WithClock(c quartz.Clock) GateOption {
	return func(g *Gate) {
		g.clock = c
	}
}

// WithRecorder sets the audit log that receives every verdict.
func WithRecorder(r auditlog.Recorder) GateOption {
	return func(g *Gate) {
		g.recorder = r
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) GateOption {
	return func(g *Gate) {
		g.metrics = m
	}
}

// WithTracer sets the tracer. Default: the global OpenTelemetry provider.
func WithTracer(t trace.Tracer) GateOption {
	return func(g *Gate) {
		g.tracer = t
	}
}

// WithFingerprintFunc replaces ComputeDeviceFingerprint as the source of the
// local device fingerprint.
func WithFingerprintFunc(fn func() (string, error)) GateOption {
	return func(g *Gate) {
		g.fingerprint = fn
	}
}

// NewGate creates a Gate for cfg.
func NewGate(cfg Config, opts ...GateOption) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := &Gate{
		cfg:         cfg,
		clock:       quartz.NewReal(),
		logger:      zap.NewNop(),
		fingerprint: ComputeDeviceFingerprint,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.tracer == nil {
		g.tracer = otel.Tracer(tracerName)
	}
	g.hostname, _ = os.Hostname()
	return g, nil
}

// Check verifies the configured license once:
//  1. Reads the license and public key files
//  2. Computes the local device fingerprint (if the device check is enabled)
//  3. Runs AssertLicenseOK with today's date from the clock
//  4. Logs, counts, traces and records the verdict
//
// A returned error means the license could not be evaluated (missing file,
// bad key, unparseable license). Reporting failures only get logged.
func (g *Gate) Check(ctx context.Context) (VerifyResult, error) {
	ctx, span := g.tracer.Start(ctx, "license.verify",
		trace.WithAttributes(attribute.String("license.program_id", g.cfg.ProgramID)))
	defer span.End()

	started := g.clock.Now()
	res, fp, err := g.evaluate()
	elapsed := g.clock.Since(started)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "license evaluation failed")
		g.metrics.observeError(elapsed)
		g.logger.Error("license evaluation failed",
			zap.String("program_id", g.cfg.ProgramID),
			zap.Error(err),
		)
		return res, err
	}

	span.SetAttributes(
		attribute.Bool("license.ok", res.OK),
		attribute.String("license.reason", res.Reason),
		attribute.String("license.state", string(res.State)),
	)
	g.metrics.observe(res, elapsed)

	fields := []zap.Field{
		zap.String("license_id", maskLicenseID(res.LicenseID)),
		zap.String("program_id", res.ProgramID),
		zap.String("reason", res.Reason),
		zap.String("state", string(res.State)),
		zap.Duration("duration", elapsed),
	}
	if res.OK {
		g.logger.Info("license verified", fields...)
	} else {
		g.logger.Warn("license rejected", fields...)
	}

	if g.recorder != nil {
		_, recErr := g.recorder.Record(ctx, auditlog.Entry{
			LicenseID:   res.LicenseID,
			ProgramID:   res.ProgramID,
			OK:          res.OK,
			Reason:      res.Reason,
			Fingerprint: fp,
			Hostname:    g.hostname,
			CheckedAt:   g.clock.Now(),
		})
		if recErr != nil {
			g.logger.Warn("record license verification", zap.Error(recErr))
		}
	}
	return res, nil
}

// Enforce runs Check and turns a rejected verdict into a *RejectedError.
func (g *Gate) Enforce(ctx context.Context) error {
	res, err := g.Check(ctx)
	if err != nil {
		return err
	}
	return res.Err()
}

func (g *Gate) evaluate() (VerifyResult, string, error) {
	pending := VerifyResult{ProgramID: g.cfg.ProgramID, State: StateStart}

	keyPEM, err := os.ReadFile(g.cfg.PublicKeyFile)
	if err != nil {
		return pending, "", fmt.Errorf("read public key file: %w", err)
	}
	license, err := os.ReadFile(g.cfg.LicenseFile)
	if err != nil {
		return pending, "", fmt.Errorf("read license file: %w", err)
	}

	var fp string
	if g.cfg.DeviceCheck {
		fp, err = g.fingerprint()
		if err != nil {
			return pending, "", fmt.Errorf("compute device fingerprint: %w", err)
		}
		if fp == "" {
			return pending, "", errEmptyFingerprint
		}
	}

	res, err := AssertLicenseOK(license, keyPEM, Requirements{
		ProgramID:         g.cfg.ProgramID,
		Role:              g.cfg.Role,
		Feature:           g.cfg.Feature,
		DeviceFingerprint: fp,
		Today:             g.clock.Now().UTC(),
	})
	return res, fp, err
}

// maskLicenseID keeps the first and last four characters of long ids.
func maskLicenseID(id string) string {
	if id == "" {
		return ""
	}
	if len(id) <= 8 {
		return "****"
	}
	return id[:4] + "****" + id[len(id)-4:]
}
