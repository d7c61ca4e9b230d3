package kafka

// Topic layout.
//
//	jobs.requests  — maintenance job requests submitted by the gateway;
//	                 consumed by the maintenance service and enqueued locally.
//	posts.events   — dispatch outcomes (posted/failed) emitted by the
//	                 dispatcher; consumed by the maintenance service to
//	                 trigger analytics refreshes.
const (
	TopicJobRequests = "jobs.requests"
	TopicPostEvents  = "posts.events"
)
