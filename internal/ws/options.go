package ws

import "time"

const (
	// writeTimeout is the deadline for a single write to a peer.
	writeTimeout = 10 * time.Second

	// hardReadLimit caps a single inbound frame. Frames above it close the
	// connection; frames between MaxFrameBytes and this limit are dropped.
	hardReadLimit = 4 << 20
)

// Defaults applied by Options.withDefaults.
const (
	DefaultMaxFrameBytes  = 1 << 20
	DefaultRelayFrameSize = 2000
	DefaultRoleMaxLen     = 32
	DefaultSendBuffer     = 256
	DefaultPruneInterval  = time.Minute
	DefaultIdleThreshold  = 30 * time.Minute
)

// Options configures one hub deployment.
type Options struct {
	// IncludeSender delivers a peer's own events back to it.
	IncludeSender bool

	// Passthrough forwards raw frames without validation, enrichment, acks,
	// greetings, presence frames or logging.
	Passthrough bool

	// MaxFrameBytes is the largest inbound frame handled; larger frames are
	// dropped silently.
	MaxFrameBytes int

	// RoleMaxLen truncates the client-supplied role (in characters).
	RoleMaxLen int

	// SendBuffer is the per-peer outbound queue depth.
	SendBuffer int

	// PruneInterval is how often Run sweeps the registry.
	PruneInterval time.Duration

	// IdleThreshold is how long a peer may stay silent before it is pinged.
	IdleThreshold time.Duration
}

// HubOptions returns the multi-role hub settings: sender included, 1 MiB frames.
func HubOptions() Options {
	return Options{IncludeSender: true}.withDefaults()
}

// RelayOptions returns the pass-through relay settings: sender excluded,
// 2000-byte frames.
func RelayOptions() Options {
	return Options{Passthrough: true, MaxFrameBytes: DefaultRelayFrameSize}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = DefaultMaxFrameBytes
	}
	if o.RoleMaxLen <= 0 {
		o.RoleMaxLen = DefaultRoleMaxLen
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = DefaultSendBuffer
	}
	if o.PruneInterval <= 0 {
		o.PruneInterval = DefaultPruneInterval
	}
	if o.IdleThreshold <= 0 {
		o.IdleThreshold = DefaultIdleThreshold
	}
	return o
}

func (o Options) readLimit() int64 {
	if int64(o.MaxFrameBytes) >= hardReadLimit {
		return int64(o.MaxFrameBytes) + 1
	}
	return hardReadLimit
}
