package cache

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/tale-forge/inkweave/pkg/ink"
)

func TestStoryCache(t *testing.T) {
	Convey("Story compile cache", t, func() {

		Convey("basic put/get by content hash", func() {
			c := NewStoryCache(10, time.Minute)
			story := ink.NewStory()

			c.Put("=== a ===\n-> END\n", story)
			got, found := c.Get("=== a ===\n-> END\n")
			So(found, ShouldBeTrue)
			So(got, ShouldEqual, story)

			_, found = c.Get("=== b ===\n-> END\n")
			So(found, ShouldBeFalse)
		})

		Convey("identical source text collides onto the same key", func() {
			c := NewStoryCache(10, time.Minute)
			storyA := ink.NewStory()
			storyB := ink.NewStory()

			c.Put("same text", storyA)
			c.Put("same text", storyB)

			got, found := c.Get("same text")
			So(found, ShouldBeTrue)
			So(got, ShouldEqual, storyB)
			So(c.Len(), ShouldEqual, 1)
		})

		Convey("entries expire after their TTL", func() {
			c := NewStoryCache(10, time.Millisecond)
			c.Put("expires soon", ink.NewStory())

			time.Sleep(5 * time.Millisecond)

			_, found := c.Get("expires soon")
			So(found, ShouldBeFalse)
		})

		Convey("zero TTL never expires", func() {
			c := NewStoryCache(10, 0)
			c.Put("forever", ink.NewStory())

			time.Sleep(5 * time.Millisecond)

			_, found := c.Get("forever")
			So(found, ShouldBeTrue)
		})

		Convey("capacity eviction keeps the entry count bounded", func() {
			c := NewStoryCache(2, time.Minute)
			c.Put("one", ink.NewStory())
			c.Put("two", ink.NewStory())
			c.Put("three", ink.NewStory())

			So(c.Len(), ShouldBeLessThanOrEqualTo, 2)
		})

		Convey("Delete and Clear remove entries", func() {
			c := NewStoryCache(10, time.Minute)
			c.Put("one", ink.NewStory())
			c.Put("two", ink.NewStory())

			c.Delete("one")
			_, found := c.Get("one")
			So(found, ShouldBeFalse)

			c.Clear()
			So(c.Len(), ShouldEqual, 0)
		})

		Convey("Metrics track hits, misses and evictions", func() {
			c := NewStoryCache(1, time.Minute)
			c.Put("one", ink.NewStory())

			c.Get("one")
			c.Get("missing")
			c.Put("two", ink.NewStory()) // evicts "one"

			m := c.Metrics()
			So(m.Hits, ShouldEqual, 1)
			So(m.Misses, ShouldEqual, 1)
			So(m.Evicts, ShouldEqual, 1)
		})

		Convey("KeyOf is stable for identical source text", func() {
			So(KeyOf("hello"), ShouldResemble, KeyOf("hello"))
			So(KeyOf("hello"), ShouldNotResemble, KeyOf("world"))
		})
	})
}
