// Package signal implements the "channel.signal" module: a bridge to a
// signal-cli REST API server for one bot account.
//
// The module provides:
//
//   - phone number validation for the bot and user accounts
//   - a traced, metered API client
//   - the account lifecycle (captcha registration, verification, profile and
//     webhook updates, deletion) driven by settings changes
//   - user linkage behind a consent prompt
//   - outbound messages through the channel dispatcher
//   - the browser connect endpoint and the admin API routes
//   - an inbound webhook receiver
//
// Settings live in the shared config store under the "message_signal"
// component and user links in the preference store.
package signal
