package game

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Delays are in milliseconds.
type Delays struct {
	BotThink        uint32 `yaml:"botThink"`
	AwayFold        uint32 `yaml:"awayFold"`
	ShowdownDisplay uint32 `yaml:"showdownDisplay"`
	BeforeDeal      uint32 `yaml:"beforeDeal"`
	ExpelAway       uint32 `yaml:"expelAway"`
}

func DefaultDelays() Delays {
	return Delays{
		BotThink:        1000,
		AwayFold:        3000,
		ShowdownDisplay: 5000,
		BeforeDeal:      1000,
		ExpelAway:       120000,
	}
}

// NoDelays keeps the away expulsion window; everything else fires immediately.
func NoDelays() Delays {
	return Delays{ExpelAway: DefaultDelays().ExpelAway}
}

func ParseDelayConfig(delaysFile string) (Delays, error) {
	bytes, err := ioutil.ReadFile(delaysFile)
	if err != nil {
		return Delays{}, errors.Wrap(err, fmt.Sprintf("Error reading delay config file [%s]", delaysFile))
	}

	data := DefaultDelays()
	err = yaml.Unmarshal(bytes, &data)
	if err != nil {
		return Delays{}, errors.Wrap(err, fmt.Sprintf("Error parsing delays YAML file [%s]", delaysFile))
	}

	return data, nil
}

func ms(v uint32) time.Duration {
	return time.Duration(v) * time.Millisecond
}
