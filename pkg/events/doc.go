/*
Package events provides an in-process publish/subscribe broker for timeclock.

The auth session publishes user lifecycle events and the clock-in controller publishes
its transitions. Subscribers (the controller itself for user changes, the CLI watch loop
for display) receive them on buffered channels.

	auth.Session ──user.logged_in/out, user.changed──┐
	                                                  ▼
	                                          ┌──────────────┐
	timeclock.Controller ──session.*, notice.*──►│    Broker    │──► Subscriber chans
	                                          └──────────────┘

Delivery is best effort: the broker buffers 100 events and each subscriber 50. A full
subscriber buffer drops the event for that subscriber only, so a slow display can never
stall the clock-in flow.

Publishing on a nil *Broker is a no-op, which lets components run without one in tests.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	for event := range sub {
		if event.Type == events.EventUserChanged {
			controller.Reconcile(ctx, event.User)
		}
	}
*/
package events
