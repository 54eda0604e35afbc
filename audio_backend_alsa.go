//go:build alsa && linux && cgo && !headless

// audio_backend_alsa.go - ALSA audio output implementation

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package metronome

/*
#cgo LDFLAGS: -lasound
#include <alsa/asoundlib.h>
#include <stdlib.h>

static snd_pcm_t* openPCM(const char* device, int* err) {
    snd_pcm_t* handle;
    *err = snd_pcm_open(&handle, device, SND_PCM_STREAM_PLAYBACK, 0);
    return handle;
}

static int setupPCM(snd_pcm_t* handle, unsigned int rate, unsigned int channels, unsigned int latencyUs) {
    return snd_pcm_set_params(handle, SND_PCM_FORMAT_FLOAT, SND_PCM_ACCESS_RW_INTERLEAVED,
                              channels, rate, 1, latencyUs);
}

static int writePCM(snd_pcm_t* handle, float* buffer, int frames) {
    return snd_pcm_writei(handle, buffer, frames);
}

// Blocks until everything written has been played, then rearms the stream.
static int drainPCM(snd_pcm_t* handle) {
    int err = snd_pcm_drain(handle);
    if (err < 0) return err;
    return snd_pcm_prepare(handle);
}

static void closePCM(snd_pcm_t* handle) {
    if (handle != NULL) {
        snd_pcm_drain(handle);
        snd_pcm_close(handle);
    }
}
*/
import "C"
import (
	"fmt"
	"sync"
	"time"
	"unsafe"
)

const ALSA_DEVICE = "default"

// ALSAOutput writes clicks straight to an ALSA PCM. Build with -tags alsa to
// use it instead of oto.
type ALSAOutput struct {
	handle     *C.snd_pcm_t
	sampleRate int
	channels   int
	mutex      sync.Mutex
}

// OpenOutput opens the default ALSA playback device.
func OpenOutput(opts OutputOptions) (Output, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoOutputDevice, err)
	}
	device := C.CString(ALSA_DEVICE)
	defer C.free(unsafe.Pointer(device))

	var err C.int
	handle := C.openPCM(device, &err)
	if err < 0 {
		return nil, fmt.Errorf("%w: open PCM device: %s", ErrNoOutputDevice, C.GoString(C.snd_strerror(err)))
	}
	latency := opts.BufferSize
	if latency <= 0 {
		latency = OUTPUT_BUFFER
	}
	if err = C.setupPCM(handle, C.uint(opts.SampleRate), C.uint(opts.ChannelCount), C.uint(latency/time.Microsecond)); err < 0 {
		C.closePCM(handle)
		return nil, fmt.Errorf("%w: setup PCM: %s", ErrNoOutputDevice, C.GoString(C.snd_strerror(err)))
	}
	return &ALSAOutput{handle: handle, sampleRate: opts.SampleRate, channels: opts.ChannelCount}, nil
}

func (ap *ALSAOutput) SampleRate() int   { return ap.sampleRate }
func (ap *ALSAOutput) ChannelCount() int { return ap.channels }

func (ap *ALSAOutput) Write(samples []float32) error {
	ap.mutex.Lock()
	defer ap.mutex.Unlock()

	if ap.handle == nil {
		return ErrOutputClosed
	}
	frames := len(samples) / ap.channels
	if frames == 0 {
		return nil
	}
	for off := 0; off < frames; {
		n := C.writePCM(ap.handle, (*C.float)(unsafe.Pointer(&samples[off*ap.channels])), C.int(frames-off))
		if n < 0 {
			if n == -C.EPIPE {
				// Underrun: rearm and retry the same frames
				C.snd_pcm_prepare(ap.handle)
				continue
			}
			return fmt.Errorf("write failed: %s", C.GoString(C.snd_strerror(C.int(n))))
		}
		off += int(n)
	}
	if err := C.drainPCM(ap.handle); err < 0 {
		return fmt.Errorf("drain failed: %s", C.GoString(C.snd_strerror(err)))
	}
	return nil
}

func (ap *ALSAOutput) Close() error {
	ap.mutex.Lock()
	defer ap.mutex.Unlock()

	if ap.handle != nil {
		C.closePCM(ap.handle)
		ap.handle = nil
	}
	return nil
}
