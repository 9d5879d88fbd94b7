package metrics

// ChatStreamObserver forwards chat loop counters into the HTTP server
// registry.
type ChatStreamObserver struct {
	Service string
	Metrics *HTTPServerMetrics
}

func (o ChatStreamObserver) StreamFinished(status string, toolRounds int) {
	o.Metrics.RecordChatStream(o.Service, status, toolRounds)
}

func (o ChatStreamObserver) ToolExecuted(tool, status string) {
	o.Metrics.RecordToolCall(o.Service, tool, status)
}
