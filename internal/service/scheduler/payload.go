package scheduler

import (
	"strconv"
	"strings"
)

// BuildFirePayload renders the control message sent to a module when an
// alarm fires. The format is flat line-oriented key=value text, cheap for
// constrained firmware to parse:
//
//	check=1
//	relay=2,4,16
//	time=300
//	schedule=7
//	sequential=0
//
// check is the actuation-on marker, relay lists the target pin numbers,
// time is the actuation duration in seconds, schedule identifies the alarm
// and sequential tells the device to walk the pins one by one.
func BuildFirePayload(alarmID uint, pins []int, durationSeconds int64, sequential bool) string {
	relays := make([]string, 0, len(pins))
	for _, p := range pins {
		relays = append(relays, strconv.Itoa(p))
	}

	seq := "0"
	if sequential {
		seq = "1"
	}

	var b strings.Builder
	b.WriteString("check=1\n")
	b.WriteString("relay=" + strings.Join(relays, ",") + "\n")
	b.WriteString("time=" + strconv.FormatInt(durationSeconds, 10) + "\n")
	b.WriteString("schedule=" + strconv.FormatUint(uint64(alarmID), 10) + "\n")
	b.WriteString("sequential=" + seq)

	return b.String()
}
