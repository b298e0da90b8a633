package lifecycle

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

type recorder struct {
	background, foreground int
	onBackground           func()
}

func (r *recorder) AppDidEnterBackground() {
	r.background++
	if r.onBackground != nil {
		r.onBackground()
	}
}

func (r *recorder) AppWillEnterForeground() { r.foreground++ }

func TestNotifier(t *testing.T) {
	Convey("Given a notifier with two subscribers", t, func() {
		n := NewNotifier()
		a, b := &recorder{}, &recorder{}
		unsubA := n.Subscribe(a)
		n.Subscribe(b)
		So(n.Len(), ShouldEqual, 2)

		Convey("Transitions should reach both", func() {
			n.EnterBackground()
			n.EnterForeground()
			So(a.background, ShouldEqual, 1)
			So(b.foreground, ShouldEqual, 1)
		})

		Convey("Unsubscribe should be idempotent", func() {
			unsubA()
			unsubA()
			So(n.Len(), ShouldEqual, 1)

			n.EnterBackground()
			So(a.background, ShouldEqual, 0)
			So(b.background, ShouldEqual, 1)
		})

		Convey("A subscriber may unsubscribe from its own callback", func() {
			a.onBackground = unsubA
			n.EnterBackground()
			So(n.Len(), ShouldEqual, 1)
		})
	})

	Convey("The zero value should be usable", t, func() {
		var n Notifier
		r := &recorder{}
		n.Subscribe(r)
		n.EnterForeground()
		So(r.foreground, ShouldEqual, 1)
	})
}
