// Package core contains the product webhook domain: records, endpoint
// settings, the attribute filter and the dispatcher that sits between the
// host event source and outbound delivery. Adapters depend on this package;
// core must not depend on transport, storage or queue adapters.
package core
