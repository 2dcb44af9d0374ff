package discovery

import "context"

// refillThreshold triggers a fetch when fewer unconsumed candidates remain.
const refillThreshold = 4

// Pager turns the feed into a lazy, restartable sequence. It pulls the next
// window before the current one runs dry and drops any duplicate that slips
// through a concurrent seen-state change.
type Pager struct {
	svc      *Service
	userID   uint64
	prefs    Prefs
	filters  Filters
	pageSize int

	buffer    []Candidate
	offset    int
	served    map[uint64]struct{}
	exhausted bool
}

func NewPager(svc *Service, userID uint64, prefs Prefs, filters Filters, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Pager{
		svc:      svc,
		userID:   userID,
		prefs:    prefs,
		filters:  filters,
		pageSize: pageSize,
		served:   make(map[uint64]struct{}),
	}
}

// Next returns the next candidate, or (nil, nil) when the feed is drained.
func (p *Pager) Next(ctx context.Context) (*Candidate, error) {
	if len(p.buffer) < refillThreshold && !p.exhausted {
		if err := p.refill(ctx); err != nil {
			return nil, err
		}
	}
	if len(p.buffer) == 0 {
		return nil, nil
	}

	c := p.buffer[0]
	p.buffer = p.buffer[1:]
	p.served[c.UserID] = struct{}{}
	return &c, nil
}

func (p *Pager) refill(ctx context.Context) error {
	page, err := p.svc.BuildFeed(ctx, p.userID, p.prefs, p.filters, p.pageSize, p.offset)
	if err != nil {
		return err
	}
	p.offset += len(page)
	if len(page) < p.pageSize {
		p.exhausted = true
	}

	for _, c := range page {
		if _, dup := p.served[c.UserID]; dup {
			continue
		}
		buffered := false
		for _, b := range p.buffer {
			if b.UserID == c.UserID {
				buffered = true
				break
			}
		}
		if !buffered {
			p.buffer = append(p.buffer, c)
		}
	}
	return nil
}
