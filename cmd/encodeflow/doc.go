// Command encodeflow is the operator CLI for the remote encoding workflow.
//
// It records uploads (submitting videos to the provider), feeds provider
// callback documents into the lifecycle, retries failed jobs, and lists
// assets and stuck jobs from the local SQLite store. The logs command tails
// the encodeflow log filtered to one asset or media id.
package main
