// Package audit records security-relevant events: registrations, logins,
// failed logins, and administrative changes to users and staff.
//
// Entries are written asynchronously by the API server so a slow disk
// never blocks a request. The log is append-only; there is no update or
// delete path.
package audit
