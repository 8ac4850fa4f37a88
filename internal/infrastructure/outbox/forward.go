package outbox

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
)

// Forward subscribes to to every named event on sub and republishes it there.
// It keeps slow sinks such as a broker relay off the publishing path.
func Forward(sub domoutbox.Subscriber, to domoutbox.Publisher, eventNames ...string) {
	if sub == nil || to == nil {
		return
	}
	h := func(ctx context.Context, e domoutbox.Event) error {
		return to.Publish(ctx, e)
	}
	for _, name := range eventNames {
		sub.Subscribe(name, h)
	}
}
