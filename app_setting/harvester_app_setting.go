package app_setting

import (
	"io/ioutil"
	"log"
	"time"

	"gopkg.in/yaml.v2"
)

// Startup settings for the harvester binary.
type HarvesterAppSetting struct {
	// How often the scheduler polls the journal table for due journals,
	// in seconds.
	POLL_INTERVAL_SECOND int64 `yaml:"POLL_INTERVAL_SECOND"`
	// Upper bound on fetches running at the same time.
	MAX_CONCURRENT_FETCHES int `yaml:"MAX_CONCURRENT_FETCHES"`
	// Dogstatsd endpoint fetch metrics are shipped to. Empty disables
	// metric reporting.
	STATSD_ADDR string `yaml:"STATSD_ADDR"`
}

// PollInterval returns the scheduler poll interval with a one second floor,
// time.NewTicker panics on non-positive durations.
func (s *HarvesterAppSetting) PollInterval() time.Duration {
	if s.POLL_INTERVAL_SECOND < 1 {
		return time.Second
	}
	return time.Duration(s.POLL_INTERVAL_SECOND) * time.Second
}

func ParseHarvesterAppSetting(path string) HarvesterAppSetting {
	c := HarvesterAppSetting{}
	yamlFile, err := ioutil.ReadFile(path)
	if err != nil {
		log.Fatal("yamlFile. get err: ", err.Error())
	}
	err = yaml.Unmarshal(yamlFile, &c)
	if err != nil {
		log.Fatal("Unmarshal: ", err)
	}
	return c
}
