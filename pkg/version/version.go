package version

import (
	"fmt"
	"strconv"
	"time"
)

var (
	revision  = "unknown"
	buildTime = ""
)

func Version() string {
	return revision
}

// BuildTime parses the unix timestamp injected at link time.
func BuildTime() (time.Time, error) {
	if buildTime == "" {
		return time.Time{}, fmt.Errorf("build time not set")
	}
	epoch, err := strconv.ParseInt(buildTime, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(epoch, 0), nil
}
