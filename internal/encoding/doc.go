// Package encoding drives the remote encoding job lifecycle for root assets.
//
// Manager submits new uploads to the provider with a guaranteed final
// reconciliation (a submission always ends persisted as started with a media
// id or as error without one), resolves provider callbacks back to assets,
// and materializes the derived rendition and thumbnail records before a job
// is marked done. Callback handling for one asset runs inside a keyed lock so
// duplicate deliveries neither double-materialize nor complete twice.
//
// Keep lifecycle decisions here; the encodingcom package only speaks the wire
// protocol and the assets package only validates and persists transitions.
package encoding
