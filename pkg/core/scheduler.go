/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: scheduler.go
Description: Scheduler interface and the round-robin queue scheduler used by the engine to
pick the next corpus entry for a mutational stage.
*/

package core

// Scheduler defines the interface for pluggable corpus scheduling.
// Allows the fuzzer engine to use different scheduling strategies.
type Scheduler interface {
	// Next returns the index of the corpus entry to fuzz next
	Next(corpus *Corpus) (int, error)
}

// QueueScheduler walks the corpus in insertion order and wraps around.
// Entries appended during a cycle are visited before the wrap.
type QueueScheduler struct {
	next int
}

// NewQueueScheduler creates a new QueueScheduler instance
func NewQueueScheduler() *QueueScheduler {
	return &QueueScheduler{}
}

// Next returns the next corpus position
func (s *QueueScheduler) Next(corpus *Corpus) (int, error) {
	size := corpus.Size()
	if size == 0 {
		return 0, ErrEmptyCorpus
	}
	if s.next >= size {
		s.next = 0
	}
	idx := s.next
	s.next++
	return idx, nil
}
