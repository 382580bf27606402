// Package observability wires OpenTelemetry tracing and metrics for
// transcription workloads.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("speechkit"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("speechkit"))
//	defer mp.Shutdown(ctx)
//	metrics, err := observability.NewMetrics(observability.Meter("speechkit"))
//	metrics.RecordCall(ctx, "azure", "transcribe", "ok", elapsed)
//
// Backend health:
//
//	health := observability.NewServiceHealth("speechkit", version)
//	health.AddComponent(observability.CheckProvider(ctx, client))
package observability
