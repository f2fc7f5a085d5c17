package chat

// Fanout is a small worker pool that moves payloads onto client send
// queues so broadcast cost never lands on the event that triggered it.
type Fanout struct {
	jobs chan deliverJob
}

type deliverJob struct {
	conns   []*Client
	payload []byte
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 4096
	}
	f := &Fanout{jobs: make(chan deliverJob, queue)}
	for i := 0; i < workers; i++ {
		go func() {
			for job := range f.jobs {
				for _, c := range job.conns {
					// Slow client: skip rather than block the pool.
					c.Enqueue(job.payload)
				}
			}
		}()
	}
	return f
}

func (f *Fanout) Deliver(conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	f.jobs <- deliverJob{conns: conns, payload: payload}
}

// Close stops the workers once queued jobs drain.
func (f *Fanout) Close() {
	close(f.jobs)
}
