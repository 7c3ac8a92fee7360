package engine

import (
	"io"
	"os"

	"github.com/h2x/engine/frame"
)

// sendFile implements the SendFile command (spec.md §4.4): stream a
// file's contents as DATA frames chunked to the peer's advertised
// SETTINGS_MAX_FRAME_SIZE. When File is supplied instead of Path, its
// current offset is saved before seeking and restored once streaming
// completes, so the caller can reuse the handle for something else.
func (c *Conn) sendFile(s *Stream, cmd SendFile) *Error {
	f := cmd.File
	if f == nil {
		opened, err := os.Open(cmd.Path)
		if err != nil {
			return InternalErr(s.id, "open file", err)
		}
		defer opened.Close()
		f = opened
	} else {
		prior, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return InternalErr(s.id, "seek file", err)
		}
		defer f.Seek(prior, io.SeekStart)
	}

	if _, err := f.Seek(cmd.Offset, io.SeekStart); err != nil {
		return InternalErr(s.id, "seek file", err)
	}

	maxFrame := int(c.remote.MaxFrameSize())
	if maxFrame <= 0 {
		maxFrame = int(frame.DefaultMaxFrameSize)
	}

	var reader io.Reader = f
	bounded := cmd.N >= 0
	if bounded {
		reader = io.LimitReader(f, cmd.N)
	}

	buf := make([]byte, maxFrame)
	var sent int64

	for {
		n, rerr := reader.Read(buf)
		if n > 0 {
			sent += int64(n)
			atEnd := rerr == io.EOF || (bounded && sent >= cmd.N)
			if err := c.codec.WriteData(s.id, atEnd && cmd.Fin, buf[:n]); err != nil {
				return SocketErr(err)
			}
			if atEnd {
				if cmd.Fin {
					s.local = localFin
				}
				return nil
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				if cmd.Fin {
					if err := c.codec.WriteData(s.id, true, nil); err != nil {
						return SocketErr(err)
					}
					s.local = localFin
				}
				return nil
			}
			return InternalErr(s.id, "read file", rerr)
		}
	}
}
