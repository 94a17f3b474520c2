package channel

import (
	"bufio"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"

	"github.com/dep2p/go-svcmux/pkg/types"
)

// maxHeaderSize kind + 4 个 uvarint
const maxHeaderSize = 1 + 4*varint.MaxLenUvarint63

// frame 线上帧
type frame struct {
	kind    types.MessageKind
	channel types.ChannelID
	seq     types.Sequence
	payload []byte
}

// writeFrame 编码并一次性写出帧
func writeFrame(w io.Writer, f frame) error {
	buf := make([]byte, 0, maxHeaderSize+len(f.payload))
	buf = append(buf, byte(f.kind))
	buf = append(buf, varint.ToUvarint(uint64(f.channel))...)
	buf = append(buf, varint.ToUvarint(f.seq.Stream)...)
	buf = append(buf, varint.ToUvarint(f.seq.Channel)...)
	buf = append(buf, varint.ToUvarint(uint64(len(f.payload)))...)
	buf = append(buf, f.payload...)
	_, err := w.Write(buf)
	return err
}

// readFrame 读取一帧，负载超过 maxPayload 时返回 ErrFrameTooLarge
func readFrame(r *bufio.Reader, maxPayload int) (frame, error) {
	var f frame

	kind, err := r.ReadByte()
	if err != nil {
		return f, err
	}
	f.kind = types.MessageKind(kind)

	ch, err := varint.ReadUvarint(r)
	if err != nil {
		return f, fmt.Errorf("read channel id: %w", unexpectedEOF(err))
	}
	if ch > uint64(^uint32(0)) {
		return f, fmt.Errorf("channel id %d out of range", ch)
	}
	f.channel = types.ChannelID(ch)

	if f.seq.Stream, err = varint.ReadUvarint(r); err != nil {
		return f, fmt.Errorf("read stream seq: %w", unexpectedEOF(err))
	}
	if f.seq.Channel, err = varint.ReadUvarint(r); err != nil {
		return f, fmt.Errorf("read channel seq: %w", unexpectedEOF(err))
	}

	n, err := varint.ReadUvarint(r)
	if err != nil {
		return f, fmt.Errorf("read length: %w", unexpectedEOF(err))
	}
	if n > uint64(maxPayload) {
		return f, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, maxPayload)
	}
	if n > 0 {
		f.payload = make([]byte, n)
		if _, err := io.ReadFull(r, f.payload); err != nil {
			return f, fmt.Errorf("read payload: %w", unexpectedEOF(err))
		}
	}
	return f, nil
}

// unexpectedEOF 帧中途结束
func unexpectedEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
