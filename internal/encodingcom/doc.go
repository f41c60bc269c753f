// Package encodingcom speaks the encoding.com XML API.
//
// BuildRequest renders the AddMedia query for a root asset, Client.Submit
// posts it and extracts the MediaID acknowledgement, and ParseCallback decodes
// the asynchronous status notification. The package performs no retries and
// keeps no state; lifecycle decisions belong to the encoding package.
package encodingcom
