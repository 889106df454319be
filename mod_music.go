package snowscene

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
	"github.com/h2non/filetype"
)

// VolumeStep is how much one volume key press changes the volume.
const VolumeStep = 0.1

// AudioSink is where decoded music ends up. Lock and Unlock guard streamer
// state that the sink reads from its own goroutine.
type AudioSink interface {
	Init(format beep.Format) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close()
}

// SpeakerSink plays through the default audio device.
type SpeakerSink struct{}

func (SpeakerSink) Init(format beep.Format) error {
	return speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
}

func (SpeakerSink) Play(s beep.Streamer) { speaker.Play(s) }
func (SpeakerSink) Lock()                { speaker.Lock() }
func (SpeakerSink) Unlock()              { speaker.Unlock() }
func (SpeakerSink) Close()               { speaker.Close() }

// DecodeMusic opens an mp3 or wav file. The caller closes the stream.
func DecodeMusic(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open music: %w", err)
	}
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("read music %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("read music %s: %w", path, err)
	}

	var stream beep.StreamSeekCloser
	var format beep.Format
	switch kind, _ := filetype.Match(head[:n]); kind.Extension {
	case "mp3":
		stream, format, err = mp3.Decode(f)
	case "wav":
		stream, format, err = wav.Decode(f)
	default:
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("music %s: %w: %s", path, ErrUnsupportedAsset, kind.MIME.Value)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode music %s: %w", path, err)
	}
	return stream, format, nil
}

// MusicPlayer is the music resource. A player without a track ignores every
// control.
type MusicPlayer struct {
	sink   AudioSink
	stream beep.StreamSeekCloser
	ctrl   *beep.Ctrl
	gain   *effects.Volume
	level  float64
}

// NewMusicPlayer loops stream forever into sink, paused, at volume level.
func NewMusicPlayer(sink AudioSink, stream beep.StreamSeekCloser, format beep.Format, level float64) (*MusicPlayer, error) {
	if err := sink.Init(format); err != nil {
		return nil, fmt.Errorf("init audio: %w", err)
	}
	p := &MusicPlayer{sink: sink, stream: stream}
	p.ctrl = &beep.Ctrl{Streamer: beep.Loop(-1, stream), Paused: true}
	p.gain = &effects.Volume{Streamer: p.ctrl, Base: 2}
	p.applyLevel(level)
	sink.Play(p.gain)
	return p, nil
}

func (p *MusicPlayer) loaded() bool { return p != nil && p.ctrl != nil }

// Playing reports whether the track is audible-or-muted but not paused.
func (p *MusicPlayer) Playing() bool {
	if !p.loaded() {
		return false
	}
	p.sink.Lock()
	defer p.sink.Unlock()
	return !p.ctrl.Paused
}

func (p *MusicPlayer) setPaused(paused bool) {
	if !p.loaded() {
		return
	}
	p.sink.Lock()
	p.ctrl.Paused = paused
	p.sink.Unlock()
}

func (p *MusicPlayer) Play()  { p.setPaused(false) }
func (p *MusicPlayer) Pause() { p.setPaused(true) }

// Toggle flips between playing and paused and returns the new playing state.
func (p *MusicPlayer) Toggle() bool {
	if !p.loaded() {
		return false
	}
	p.sink.Lock()
	p.ctrl.Paused = !p.ctrl.Paused
	playing := !p.ctrl.Paused
	p.sink.Unlock()
	return playing
}

// Volume is the linear volume in [0, 1].
func (p *MusicPlayer) Volume() float64 {
	if !p.loaded() {
		return 0
	}
	return p.level
}

// SetVolume clamps level to [0, 1] and applies it.
func (p *MusicPlayer) SetVolume(level float64) {
	if !p.loaded() {
		return
	}
	p.sink.Lock()
	p.applyLevel(level)
	p.sink.Unlock()
}

func (p *MusicPlayer) applyLevel(level float64) {
	level = math.Round(math.Max(0, math.Min(1, level))*100) / 100
	p.level = level
	p.gain.Silent = level == 0
	if level > 0 {
		p.gain.Volume = math.Log2(level)
	}
}

func (p *MusicPlayer) Close() {
	if !p.loaded() {
		return
	}
	p.sink.Lock()
	p.ctrl.Paused = true
	p.sink.Unlock()
	p.sink.Close()
	p.stream.Close()
	p.ctrl = nil
}

// MusicModule plays the background track. M toggles it, = and - (or keypad
// + and -) step the volume, and any other key pauses it.
type MusicModule struct {
	Config MusicConfig
	// Path is the resolved track path; Config.Path is used when empty.
	Path   string
	Policy ErrorPolicy
	// Sink defaults to the system speaker.
	Sink AudioSink
}

func (mod MusicModule) Install(app *App, cmd *Commands) {
	player := &MusicPlayer{}
	app.addResources(player)
	if !mod.Config.Enabled {
		return
	}

	path := mod.Path
	if path == "" {
		path = mod.Config.Path
	}
	sink := mod.Sink
	if sink == nil {
		sink = SpeakerSink{}
	}

	stream, format, err := DecodeMusic(path)
	if err == nil {
		var p *MusicPlayer
		if p, err = NewMusicPlayer(sink, stream, format, mod.Config.Volume); err != nil {
			stream.Close()
		} else {
			*player = *p
		}
	}
	if err != nil {
		if mod.Policy == ErrorPolicyFail {
			cmd.Fail(fmt.Errorf("music: %w", err))
			return
		}
		app.Logger().Warnf("music disabled: %v", err)
		return
	}

	if mod.Config.Autoplay {
		player.Play()
	}
	app.Logger().Infof("music loaded from %s (volume %.1f)", path, player.Volume())

	app.UseSystem(
		System(musicControlSystem).
			InStage(Update).
			RunAlways(),
	)
	app.UseSystem(
		System(musicShutdownSystem).
			InStage(Finale).
			RunAlways(),
	)
}

var (
	volumeUpKeys   = []int{KeyEqual, KeyKPPlus, KeyKPEqual}
	volumeDownKeys = []int{KeyMinus, KeyKPMinus}
)

func musicControlSystem(player *MusicPlayer, input *Input, cmd *Commands) {
	switch {
	case input.JustPressed[KeyM]:
		cmd.Logger().Debugf("music playing: %v", player.Toggle())
	case anyJustPressed(input, volumeUpKeys):
		player.SetVolume(player.Volume() + VolumeStep)
	case anyJustPressed(input, volumeDownKeys):
		player.SetVolume(player.Volume() - VolumeStep)
	case input.AnyJustPressed(append(append([]int{KeyM}, volumeUpKeys...), volumeDownKeys...)...):
		if player.Playing() {
			player.Pause()
		}
	}
}

func anyJustPressed(input *Input, keys []int) bool {
	for _, k := range keys {
		if input.JustPressed[k] {
			return true
		}
	}
	return false
}

func musicShutdownSystem(player *MusicPlayer, cmd *Commands) {
	if cmd.app.done {
		player.Close()
	}
}
