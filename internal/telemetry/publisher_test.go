//go:build integration
// +build integration

package telemetry

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tale-forge/inkweave/internal/config"
	"github.com/tale-forge/inkweave/pkg/ink"
)

func TestPublisher(t *testing.T) {
	Convey("Publisher", t, func() {

		Convey("a disabled publisher is a no-op", func() {
			p, err := New(config.RuntimeOptions{TelemetryEnabled: false}, nil)
			So(err, ShouldBeNil)
			So(p.Enabled(), ShouldBeFalse)
			p.ParagraphEmitted(ink.CurrentPath{Knot: "start"}, ink.Paragraph{Text: "hi"})
			So(p.Close(), ShouldBeNil)
		})

		Convey("an embedded server receives published events", func() {
			p, err := New(config.RuntimeOptions{
				TelemetryEnabled: true,
				EmbeddedNATS:     true,
				TelemetrySubject: "inkweave.test.events",
			}, nil)
			So(err, ShouldBeNil)
			So(p.Enabled(), ShouldBeTrue)
			defer p.Close()

			sub, err := p.conn.SubscribeSync("inkweave.test.events")
			So(err, ShouldBeNil)

			p.ParagraphEmitted(ink.CurrentPath{Knot: "start", Stitch: "_"}, ink.Paragraph{Text: "Hello.", Tags: []string{"greeting"}})

			msg, err := sub.NextMsg(2 * time.Second)
			So(err, ShouldBeNil)

			var evt Event
			So(json.Unmarshal(msg.Data, &evt), ShouldBeNil)
			So(evt.Type, ShouldEqual, EventParagraph)
			So(evt.Data["knot"], ShouldEqual, "start")
			So(evt.Data["text"], ShouldEqual, "Hello.")
		})

		Convey("ChoicePresented and VariableChanged publish their own event types", func() {
			p, err := New(config.RuntimeOptions{
				TelemetryEnabled: true,
				EmbeddedNATS:     true,
				TelemetrySubject: "inkweave.test.events2",
			}, nil)
			So(err, ShouldBeNil)
			defer p.Close()

			sub, err := p.conn.SubscribeSync("inkweave.test.events2")
			So(err, ShouldBeNil)

			p.ChoicePresented([]ink.PendingChoice{{Title: "Go north"}, {Title: "Go south"}})
			msg, err := sub.NextMsg(2 * time.Second)
			So(err, ShouldBeNil)
			var evt Event
			So(json.Unmarshal(msg.Data, &evt), ShouldBeNil)
			So(evt.Type, ShouldEqual, EventChoice)
			So(evt.Data["count"], ShouldEqual, float64(2))

			p.VariableChanged("gold", ink.NumberValue(10), ink.NumberValue(42))
			msg, err = sub.NextMsg(2 * time.Second)
			So(err, ShouldBeNil)
			So(json.Unmarshal(msg.Data, &evt), ShouldBeNil)
			So(evt.Type, ShouldEqual, EventVariable)
			So(evt.Data["name"], ShouldEqual, "gold")
		})
	})
}
