// Package core defines the shared value types exchanged between providers,
// the model session, the tool subsystem and the dispatch loop: model
// configuration and credentials, the normalized chat request, the opaque
// ModelHandle contract produced by provider adapters, the StreamEvent union
// relayed to the UI, and the error taxonomy used across component boundaries.
package core
