// Package unisen reports errors from miniapp hosts to an error-tracking
// ingestion server.
//
// A host exposes its API through Platform plus optional capability
// interfaces (Requester, ErrorHook, SystemInfoSource, ...). unisen normalizes
// whatever the host hands it into Event records, enriches them with device,
// router and scope data, and ships them as envelopes over the host's own
// request primitive.
//
// # Core Components
//
//   - Event: the structured error record sent to the server
//   - Client: builds, enriches, filters and sends events
//   - Integration: hooks into the client lifecycle (GlobalHandlers, System, Router, ...)
//   - Transport: delivers envelopes (miniapp request, async, multi, stderr, cxdb)
//   - Scrubber: redacts sensitive data with fail-closed behavior
//
// # Quick Start
//
//	client, err := unisen.Init(unisen.ClientOptions{
//	    DSN:      "https://key@o0.ingest.example.com/42",
//	    Platform: native.New(native.WithAppName(unisen.AppWechat)),
//	})
//	defer unisen.Close(ctx)
//	defer unisen.Recover(ctx, client)
//
//	unisen.CaptureException(ctx, err, nil)
//	unisen.CaptureMessage(ctx, "cart restored", unisen.LevelInfo, nil)
//
// # Design Principles
//
//   - Capturing never panics or blocks the caller on host failures: errors are logged
//   - Missing host capabilities degrade to no-ops
//   - Fail-closed scrubbing: on any error, fields are fully redacted
package unisen
