package history

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-chat/chat-service/internal/domain"
)

// Deduplicated collapses concurrent identical page loads into one store
// read. Appends pass straight through.
type Deduplicated struct {
	Store
	sf singleflight.Group
}

func NewDeduplicated(store Store) *Deduplicated {
	return &Deduplicated{Store: store}
}

func (d *Deduplicated) LoadPage(ctx context.Context, channel, afterID string, take int) (*domain.HistoryPage, error) {
	key := channel + "|" + afterID + "|" + strconv.Itoa(take)
	result, err, _ := d.sf.Do(key, func() (interface{}, error) {
		return d.Store.LoadPage(ctx, channel, afterID, take)
	})
	if err != nil {
		return nil, err
	}
	page, ok := result.(*domain.HistoryPage)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return clonePage(page), nil
}

// Callers sharing a flight must not share slices.
func clonePage(p *domain.HistoryPage) *domain.HistoryPage {
	out := &domain.HistoryPage{Channel: p.Channel, NextAfterID: p.NextAfterID}
	out.Items = make([]*domain.ChatMessage, len(p.Items))
	for i, m := range p.Items {
		cp := *m
		out.Items[i] = &cp
	}
	return out
}
