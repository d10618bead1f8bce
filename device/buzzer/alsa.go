/*
DESCRIPTION
  alsa.go provides an ALSA-backed Buzzer that synthesises square-wave
  tones on a playback device. It stands in for the piezo driver on
  hardware that routes cues through the sound card.

AUTHORS
  Dana Okafor <dana@opendarkroom.org>

LICENSE
  Copyright (C) 2024 the Open Darkroom Project. All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Open Darkroom Project.
*/

package buzzer

import (
	"errors"
	"sync"

	yalsa "github.com/yobert/alsa"

	"github.com/ausocean/utils/logging"
)

const (
	pkg        = "buzzer: "
	toneRate   = 44100 // Hz.
	chunkSize  = 2205  // Samples per write, 50 ms.
	defaultHz  = 500
	defaultVol = VolumeMedium
)

var volumeScale = map[Volume]float64{
	VolumeOff:    0,
	VolumeLow:    0.1,
	VolumeMedium: 0.4,
	VolumeHigh:   1.0,
}

// ALSA is a Buzzer playing through the first available ALSA playback
// device.
type ALSA struct {
	l    logging.Logger
	dev  *yalsa.Device
	rate int

	mu      sync.Mutex
	freq    uint16
	vol     Volume
	playing bool
	quit    chan struct{}
}

// NewALSA opens the first playback device and returns a ready Buzzer.
func NewALSA(l logging.Logger) (*ALSA, error) {
	b := &ALSA{l: l, freq: defaultHz, vol: defaultVol}

	cards, err := yalsa.OpenCards()
	if err != nil {
		return nil, err
	}
	defer yalsa.CloseCards(cards)

	for _, card := range cards {
		devices, err := card.Devices()
		if err != nil {
			continue
		}
		for _, dev := range devices {
			if dev.Type == yalsa.PCM && dev.Play {
				b.dev = dev
				break
			}
		}
		if b.dev != nil {
			break
		}
	}
	if b.dev == nil {
		return nil, errors.New("no ALSA playback device found")
	}

	err = b.dev.Open()
	if err != nil {
		return nil, err
	}
	_, err = b.dev.NegotiateChannels(1)
	if err != nil {
		return nil, err
	}
	b.rate, err = b.dev.NegotiateRate(toneRate)
	if err != nil {
		return nil, err
	}
	_, err = b.dev.NegotiateFormat(yalsa.S16_LE)
	if err != nil {
		return nil, err
	}
	_, err = b.dev.NegotiateBufferSize(chunkSize * 2)
	if err != nil {
		return nil, err
	}
	err = b.dev.Prepare()
	if err != nil {
		return nil, err
	}

	l.Debug(pkg+"playback device opened", "rate", b.rate)
	return b, nil
}

func (b *ALSA) SetFrequency(hz uint16) {
	b.mu.Lock()
	b.freq = hz
	b.mu.Unlock()
}

func (b *ALSA) Frequency() uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freq
}

func (b *ALSA) SetVolume(v Volume) {
	b.mu.Lock()
	b.vol = v
	b.mu.Unlock()
}

func (b *ALSA) Volume() Volume {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.vol
}

// Start begins tone output. It returns immediately; samples are
// written from a separate routine so cue timing is controlled by the
// caller's Start/Stop calls.
func (b *ALSA) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.playing {
		return
	}
	b.playing = true
	b.quit = make(chan struct{})
	go b.play(b.quit)
}

// Stop halts tone output.
func (b *ALSA) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.playing {
		return
	}
	b.playing = false
	close(b.quit)
}

// play writes square-wave chunks until stopped. Phase carries across
// chunks so frequency changes do not click.
func (b *ALSA) play(quit chan struct{}) {
	buf := make([]byte, chunkSize*2)
	var phase int
	for {
		select {
		case <-quit:
			return
		default:
		}

		b.mu.Lock()
		freq := int(b.freq)
		scale := volumeScale[b.vol]
		b.mu.Unlock()
		if freq == 0 {
			freq = defaultHz
		}

		amp := int16(scale * 24000)
		halfPeriod := b.rate / (freq * 2)
		if halfPeriod < 1 {
			halfPeriod = 1
		}
		for i := 0; i < chunkSize; i++ {
			s := amp
			if (phase/halfPeriod)%2 == 1 {
				s = -amp
			}
			buf[i*2] = byte(s)
			buf[i*2+1] = byte(s >> 8)
			phase++
		}

		err := b.dev.Write(buf, chunkSize)
		if err != nil {
			b.l.Warning(pkg+"tone write failed", "error", err.Error())
			return
		}
	}
}
