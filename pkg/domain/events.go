package domain

import "time"

// Topic identifies one lifecycle signal stream.
type Topic string

const (
	TopicWillLoad        Topic = "will_load"
	TopicDidLoad         Topic = "did_load"
	TopicWillSuspend     Topic = "will_suspend"
	TopicDidSuspend      Topic = "did_suspend"
	TopicWillResume      Topic = "will_resume"
	TopicDidResume       Topic = "did_resume"
	TopicWillUnload      Topic = "will_unload"
	TopicDidUnload       Topic = "did_unload"
	TopicWillLoadChild   Topic = "will_load_child"
	TopicDidLoadChild    Topic = "did_load_child"
	TopicWillUnloadChild Topic = "will_unload_child"
	TopicDidUnloadChild  Topic = "did_unload_child"
)

// Topics lists every lifecycle signal stream, in will/did pairs.
var Topics = []Topic{
	TopicWillLoad, TopicDidLoad,
	TopicWillSuspend, TopicDidSuspend,
	TopicWillResume, TopicDidResume,
	TopicWillUnload, TopicDidUnload,
	TopicWillLoadChild, TopicDidLoadChild,
	TopicWillUnloadChild, TopicDidUnloadChild,
}

// Event is delivered to observers of a lifecycle topic. It carries either a
// successful transition notification or a propagated transition error.
type Event struct {
	Topic     Topic     `json:"topic"`
	Module    string    `json:"module"`
	Child     string    `json:"child,omitempty"`
	Err       error     `json:"-"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent builds an event for the given topic and module.
func NewEvent(topic Topic, module string, err error) Event {
	e := Event{
		Topic:     topic,
		Module:    module,
		Err:       err,
		Timestamp: time.Now(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithChild annotates the event with the child module name for the
// load-child/unload-child topics.
func (e Event) WithChild(child string) Event {
	e.Child = child
	return e
}
