package snowflake

import (
	"testing"
	"time"
)

func TestTimestampRoundtrip(t *testing.T) {
	nowMS := time.Now().UnixMilli()
	id := FromTimestamp(nowMS)
	if got := TimestampMillis(id); got != nowMS {
		t.Fatalf("TimestampMillis(FromTimestamp(%d)) = %d", nowMS, got)
	}
}

func TestAge(t *testing.T) {
	now := time.Now()
	id := FromTimestamp(now.Add(-90 * time.Minute).UnixMilli())

	age, ok := Age(id, now)
	if !ok {
		t.Fatal("Age() ok = false for past id")
	}
	if age != 90*time.Minute {
		t.Fatalf("Age() = %v, want 90m", age)
	}
}

func TestAgeFutureID(t *testing.T) {
	now := time.Now()
	id := FromTimestamp(now.Add(time.Hour).UnixMilli())

	if _, ok := Age(id, now); ok {
		t.Fatal("Age() ok = true for future id")
	}
}
