package watch

import (
	"github.com/airenas/go-app/pkg/goapp"
	"github.com/dictamed/scriba/internal/pkg/api"
	"github.com/dictamed/scriba/internal/pkg/batch"
)

// ItemGetter returns a queue item snapshot
type ItemGetter interface {
	Get(id string) (batch.Item, bool)
}

// EventHandler pushes queue item changes to watching websocket clients
type EventHandler struct {
	keeper *Keeper
	items  ItemGetter
}

// NewEventHandler creates the handler and hooks it to the queue
func NewEventHandler(keeper *Keeper, items ItemGetter) *EventHandler {
	return &EventHandler{keeper: keeper, items: items}
}

type removedView struct {
	ID      string `json:"id"`
	Removed bool   `json:"removed"`
}

// Handle pushes one event to all connections watching the item
func (h *EventHandler) Handle(ev batch.Event) {
	conns, found := h.keeper.GetConnections(ev.ID)
	if !found {
		return
	}
	var msg any
	if ev.Removed {
		msg = removedView{ID: ev.ID, Removed: true}
	} else {
		it, ok := h.items.Get(ev.ID)
		if !ok {
			return
		}
		msg = MakeItemView(&it)
	}
	for _, conn := range conns {
		if err := conn.WriteJSON(msg); err != nil {
			goapp.Log.Warn().Err(err).Str("ID", ev.ID).Msg("can't push event")
		}
	}
}

// MakeItemView maps a queue item to its client representation
func MakeItemView(it *batch.Item) *api.ItemView {
	return &api.ItemView{ID: it.ID, FileName: it.FileName, Size: it.Size, Duration: it.Duration,
		OwnerID: it.OwnerID, Status: it.Status.String(), Progress: it.Progress,
		Transcript: it.Transcript, Error: it.Error}
}
