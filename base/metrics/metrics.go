package metrics

const (
	FeedPktsMalformedH = "The total number of malformed deviation packets received via UDP"
	FeedPktsMalformedN = "driftwatch_feed_pkts_malformed"
	FeedPktsReceivedH  = "The total number of deviation packets received via UDP"
	FeedPktsReceivedN  = "driftwatch_feed_pkts_received"

	SyncChannelCorrH   = "The current suggested correction per synchronization channel"
	SyncChannelCorrN   = "driftwatch_sync_channel_corr"
	SyncChannelMissesH = "The current number of out-of-sync samples in the window per channel"
	SyncChannelMissesN = "driftwatch_sync_channel_misses"
	SyncChannelTicksH  = "The total number of reference-event ticks processed per channel"
	SyncChannelTicksN  = "driftwatch_sync_channel_ticks"
)
