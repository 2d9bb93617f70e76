package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
	// 管道输出（如 ffmpeg -f wav -）无法回写长度，data 块长度为占位值。
	wavUnknownSize = 0xFFFFFFFF
)

// EncodeWAV 把 Clip 写成 16-bit 单声道 PCM WAV。
func EncodeWAV(w io.Writer, c Clip) error {
	data := Float32ToBytes(c.Samples)
	bw := bufio.NewWriter(w)

	header := make([]byte, 44)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+len(data)))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], wavFormatPCM)
	binary.LittleEndian.PutUint16(header[22:], 1)
	binary.LittleEndian.PutUint32(header[24:], uint32(c.SampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(c.SampleRate*2))
	binary.LittleEndian.PutUint16(header[32:], 2)
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(len(data)))

	if _, err := bw.Write(header); err != nil {
		return fmt.Errorf("[audio] 写入 WAV 头失败: %w", err)
	}
	if _, err := bw.Write(data); err != nil {
		return fmt.Errorf("[audio] 写入 WAV 数据失败: %w", err)
	}
	return bw.Flush()
}

type wavFormat struct {
	audioFormat   uint16
	channels      int
	sampleRate    int
	bitsPerSample int
}

// DecodeWAV 解析 RIFF/WAVE，支持 16-bit PCM 与 32-bit float，多声道取平均混为单声道。
func DecodeWAV(r io.Reader) (Clip, error) {
	br := bufio.NewReader(r)
	var riff [12]byte
	if _, err := io.ReadFull(br, riff[:]); err != nil {
		return Clip{}, fmt.Errorf("[audio] 读取 WAV 头失败: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Clip{}, errors.New("[audio] 不是 RIFF/WAVE 文件")
	}

	var format *wavFormat
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(br, chunk[:]); err != nil {
			return Clip{}, fmt.Errorf("[audio] WAV 缺少 data 块: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(br, body); err != nil {
				return Clip{}, fmt.Errorf("[audio] 读取 fmt 块失败: %w", err)
			}
			if len(body) < 16 {
				return Clip{}, errors.New("[audio] fmt 块过短")
			}
			format = &wavFormat{
				audioFormat:   binary.LittleEndian.Uint16(body[0:]),
				channels:      int(binary.LittleEndian.Uint16(body[2:])),
				sampleRate:    int(binary.LittleEndian.Uint32(body[4:])),
				bitsPerSample: int(binary.LittleEndian.Uint16(body[14:])),
			}
			if size%2 == 1 {
				br.Discard(1)
			}
		case "data":
			if format == nil {
				return Clip{}, errors.New("[audio] data 块出现在 fmt 块之前")
			}
			var data []byte
			var err error
			if size == wavUnknownSize || size == 0 {
				data, err = io.ReadAll(br)
			} else {
				data = make([]byte, size)
				var n int
				n, err = io.ReadFull(br, data)
				if errors.Is(err, io.ErrUnexpectedEOF) {
					// 截断的文件按实际读到的内容处理
					data, err = data[:n], nil
				}
			}
			if err != nil {
				return Clip{}, fmt.Errorf("[audio] 读取 data 块失败: %w", err)
			}
			return decodeWAVData(data, format)
		default:
			skip := int(size) + int(size%2)
			if _, err := br.Discard(skip); err != nil {
				return Clip{}, fmt.Errorf("[audio] 跳过 %q 块失败: %w", id, err)
			}
		}
	}
}

func decodeWAVData(data []byte, f *wavFormat) (Clip, error) {
	if f.channels <= 0 || f.sampleRate <= 0 {
		return Clip{}, fmt.Errorf("[audio] 非法的 WAV 参数: channels=%d rate=%d", f.channels, f.sampleRate)
	}
	switch {
	case f.audioFormat == wavFormatPCM && f.bitsPerSample == 16:
		return Clip{Samples: InterleavedToMono(data, f.channels), SampleRate: f.sampleRate}, nil
	case f.audioFormat == wavFormatFloat && f.bitsPerSample == 32:
		frame := 4 * f.channels
		n := len(data) / frame
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			var sum float32
			for ch := 0; ch < f.channels; ch++ {
				bits := binary.LittleEndian.Uint32(data[i*frame+ch*4:])
				sum += math.Float32frombits(bits)
			}
			out[i] = sum / float32(f.channels)
		}
		return Clip{Samples: out, SampleRate: f.sampleRate}, nil
	default:
		return Clip{}, fmt.Errorf("[audio] 不支持的 WAV 编码: format=%d bits=%d", f.audioFormat, f.bitsPerSample)
	}
}
