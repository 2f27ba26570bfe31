package stream

import "sync"

// Share turns src into a hot observable with reference counting: the first
// subscriber connects to src through an internal Subject, later subscribers
// join that connection, and the connection is dropped when the last one
// leaves. After src terminates, the next subscriber reconnects.
func Share[T any](src Observable[T]) Observable[T] {
	return &shared[T]{src: src}
}

type shared[T any] struct {
	src Observable[T]

	mu      sync.Mutex
	subject *Subject[T]
	conn    Subscription
	refs    int
}

func (s *shared[T]) Subscribe(o Observer[T]) Subscription {
	s.mu.Lock()
	connect := false
	if s.subject == nil || s.subject.Stopped() {
		s.subject = NewSubject[T]()
		s.conn = nil
		s.refs = 0
		connect = true
	}
	subj := s.subject
	s.refs++
	s.mu.Unlock()

	inner := subj.Subscribe(o)

	if connect {
		c := s.src.Subscribe(subjectObserver[T]{subj})
		s.mu.Lock()
		if s.subject == subj && s.refs > 0 {
			s.conn = c
			c = nil
		}
		s.mu.Unlock()
		if c != nil {
			c.Unsubscribe()
		}
	}

	return newFuncSubscription(func() {
		inner.Unsubscribe()
		var conn Subscription
		s.mu.Lock()
		if s.subject == subj {
			s.refs--
			if s.refs == 0 {
				conn = s.conn
				s.subject = nil
				s.conn = nil
			}
		}
		s.mu.Unlock()
		if conn != nil {
			conn.Unsubscribe()
		}
	})
}

// subjectObserver adapts a Subject to Observer, discarding Next's count.
type subjectObserver[T any] struct {
	s *Subject[T]
}

func (o subjectObserver[T]) Next(v T)        { o.s.Next(v) }
func (o subjectObserver[T]) Error(err error) { o.s.Error(err) }
func (o subjectObserver[T]) Complete()       { o.s.Complete() }
