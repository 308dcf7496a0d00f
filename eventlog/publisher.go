package eventlog

import (
	"sync"

	"github.com/TEENet-io/onebtc-go/agreement"
	logger "github.com/sirupsen/logrus"
)

// Publisher notifies registered observer channels of committed events.
// Register observers before the first Notify.
type Publisher struct {
	observers []chan<- agreement.Event
	mu        sync.Mutex
}

func NewPublisher() *Publisher {
	return &Publisher{
		observers: make([]chan<- agreement.Event, 0),
	}
}

func (p *Publisher) Register(observer chan<- agreement.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.observers = append(p.observers, observer)
}

// Notify never blocks the caller. A full observer channel gets the event
// from a separate goroutine.
func (p *Publisher) Notify(events ...agreement.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ev := range events {
		logger.Debugf("notify %s", agreement.EventString(ev))
		for _, observer := range p.observers {
			select {
			case observer <- ev:
			default:
				go func(obs chan<- agreement.Event, ev agreement.Event) {
					obs <- ev
				}(observer, ev)
			}
		}
	}
}
