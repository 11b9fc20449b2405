package dialogue

import (
	"container/list"

	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
)

// transitionQueue holds stage transitions waiting for a milestone line
type transitionQueue struct {
	pending *list.List // relationship.Transition
}

func newTransitionQueue() *transitionQueue {
	return &transitionQueue{pending: list.New()}
}

// Enqueue adds a transition to the back of the queue
func (q *transitionQueue) Enqueue(tr relationship.Transition) {
	q.pending.PushBack(tr)
}

// Pop removes and returns the oldest transition
func (q *transitionQueue) Pop() (relationship.Transition, bool) {
	front := q.pending.Front()
	if front == nil {
		return relationship.Transition{}, false
	}
	q.pending.Remove(front)
	return front.Value.(relationship.Transition), true
}

// Count returns the number of pending transitions
func (q *transitionQueue) Count() int {
	return q.pending.Len()
}
