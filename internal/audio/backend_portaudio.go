package audio

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/localcue/dictate/internal/apperr"
)

// healthPollInterval is how often the watcher re-enumerates devices to
// detect mid-stream unplugs. PortAudio's callback API reports no error when
// a device disappears; the stream just goes silent, so presence has to be
// polled.
const healthPollInterval = 500 * time.Millisecond

// portaudioBackend wraps github.com/gordonklaus/portaudio for production
// use: explicit device selection, plus a health-watch goroutine that feeds
// the error channel when the opened device vanishes from the device list
// mid-stream.
type portaudioBackend struct {
	stream     *portaudio.Stream
	framesCh   chan []float32
	errCh      chan error
	deviceName string
	channels   int

	watchDone chan struct{}
	stopWatch sync.Once
}

func newPortaudioBackend() *portaudioBackend {
	return &portaudioBackend{
		framesCh:  make(chan []float32, 64),
		errCh:     make(chan error, 4),
		watchDone: make(chan struct{}),
	}
}

func (p *portaudioBackend) Open(deviceID string) (int, int, error) {
	if err := portaudio.Initialize(); err != nil {
		return 0, 0, fmt.Errorf("audio: portaudio init: %w", err)
	}

	dev, err := findDevice(deviceID)
	if err != nil {
		portaudio.Terminate() //nolint:errcheck
		return 0, 0, err
	}

	channels := dev.MaxInputChannels
	if channels > 2 {
		channels = 2 // we only ever need mono/stereo to downmix from
	}
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      dev.DefaultSampleRate,
		FramesPerBuffer: 512,
	}

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		frame := make([]float32, len(in))
		copy(frame, in)
		select {
		case p.framesCh <- frame:
		default: // drop on backpressure; the ring already caps history
		}
	})
	if err != nil {
		portaudio.Terminate() //nolint:errcheck
		if isPermissionDenied(err) {
			return 0, 0, fmt.Errorf("audio: %w", errMicPermissionDenied)
		}
		return 0, 0, &apperr.AudioDeviceError{Msg: fmt.Sprintf("open stream: %v", err)}
	}

	p.stream = stream
	p.deviceName = dev.Name
	p.channels = channels
	return int(dev.DefaultSampleRate), channels, nil
}

func (p *portaudioBackend) Start() error {
	if err := p.stream.Start(); err != nil {
		return &apperr.AudioDeviceError{Msg: fmt.Sprintf("start stream: %v", err)}
	}
	go p.watchHealth()
	return nil
}

// watchHealth re-enumerates devices until Stop/Close and reports on errCh
// when the opened device is no longer present.
func (p *portaudioBackend) watchHealth() {
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.watchDone:
			return
		case <-ticker.C:
			devices, err := portaudio.Devices()
			if err != nil {
				p.reportErr(&apperr.AudioDeviceError{Msg: fmt.Sprintf("enumerate devices: %v", err)})
				return
			}
			present := false
			for _, d := range devices {
				if d.MaxInputChannels > 0 && d.Name == p.deviceName {
					present = true
					break
				}
			}
			if !present {
				p.reportErr(&apperr.AudioDeviceError{Msg: fmt.Sprintf("device %q disappeared", p.deviceName)})
				return
			}
		}
	}
}

func (p *portaudioBackend) reportErr(err error) {
	select {
	case p.errCh <- err:
	default:
	}
}

func (p *portaudioBackend) Stop() error {
	p.stopWatch.Do(func() { close(p.watchDone) })
	if err := p.stream.Stop(); err != nil {
		return &apperr.AudioDeviceError{Msg: fmt.Sprintf("stop stream: %v", err)}
	}
	close(p.framesCh)
	return nil
}

func (p *portaudioBackend) Close() error {
	p.stopWatch.Do(func() { close(p.watchDone) })
	err := p.stream.Close()
	portaudio.Terminate() //nolint:errcheck
	return err
}

func (p *portaudioBackend) Frames() <-chan []float32 { return p.framesCh }
func (p *portaudioBackend) Errors() <-chan error     { return p.errCh }
func (p *portaudioBackend) DeviceName() string       { return p.deviceName }

func isPermissionDenied(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "denied") || strings.Contains(s, "unauthorized") || strings.Contains(s, "device unavailable")
}
