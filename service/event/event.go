package event

import "time"

// Context identifies the engine activity an event belongs to.
type Context struct {
	AllocationID string `json:"allocationID"`
	Tick         int    `json:"tick"`
	EventType    string `json:"eventType"`
	TimeTakenMs  int    `json:"timeTakenMs"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
