// Package webhooks performs outbound product webhook deliveries.
//
// A delivery is a single attempt: endpoint check, SSRF validation, JSON
// encoding, optional HMAC signing and one HTTPS POST. Retries belong to the
// caller or the queue transport.
package webhooks
