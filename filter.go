// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfdoc

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"errors"
	"fmt"
	"io"

	"github.com/sassoftware/viya-pdf-doc/logger"
)

// image filters are left to the caller; decoding stops in front of them.
var imageFilters = map[string]bool{
	"DCTDecode": true, "DCT": true,
	"JPXDecode":      true,
	"CCITTFaxDecode": true, "CCF": true,
	"JBIG2Decode": true,
}

// decodedBytes applies the filter chain declared in hdr to raw.
// resolve dereferences indirect filter names and parameters; it may be nil.
func decodedBytes(hdr dict, raw []byte, resolve func(object) object) ([]byte, error) {
	if resolve == nil {
		resolve = func(x object) object { return x }
	}
	var filters []name
	var params []dict
	switch f := resolve(hdr[name("Filter")]).(type) {
	case nil:
		return raw, nil
	case name:
		filters = append(filters, f)
		p, _ := resolve(hdr[name("DecodeParms")]).(dict)
		params = append(params, p)
	case array:
		ps, _ := resolve(hdr[name("DecodeParms")]).(array)
		for i, x := range f {
			n, ok := resolve(x).(name)
			if !ok {
				return nil, fmt.Errorf("%w: filter %v", ErrUnsupportedStreamFilter, objfmt(x))
			}
			filters = append(filters, n)
			var p dict
			if i < len(ps) {
				p, _ = resolve(ps[i]).(dict)
			}
			params = append(params, p)
		}
	default:
		return nil, fmt.Errorf("%w: filter %v", ErrUnsupportedStreamFilter, objfmt(f))
	}

	data := raw
	for i, f := range filters {
		if imageFilters[string(f)] {
			logger.Debug(fmt.Sprintf("filter: %s left encoded", f))
			break
		}
		var err error
		data, err = applyFilter(data, string(f), params[i], resolve)
		if err != nil {
			logger.Error(fmt.Sprintf("filter: %s failed: %v", f, err))
			return nil, err
		}
	}
	return data, nil
}

func applyFilter(data []byte, filter string, param dict, resolve func(object) object) ([]byte, error) {
	switch filter {
	case "FlateDecode", "Fl":
		out, err := flateDecode(data)
		if err != nil {
			return nil, err
		}
		return applyPredictor(out, param, resolve)
	case "ASCIIHexDecode", "AHx":
		return asciiHexDecode(data)
	case "ASCII85Decode", "A85":
		return ascii85Decode(data)
	case "RunLengthDecode", "RL":
		return runLengthDecode(data)
	case "Crypt":
		if n, _ := resolve(param[name("Name")]).(name); n != "" && n != "Identity" {
			return nil, fmt.Errorf("%w: crypt filter %s", ErrUnsupportedStreamFilter, n)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedStreamFilter, filter)
}

func flateDecode(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("flate: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		// truncated or bad checksum: keep what was inflated
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, zlib.ErrChecksum) {
			logger.Warn(fmt.Sprintf("flate: %v, keeping %d bytes", err, len(out)))
			return out, nil
		}
		return nil, fmt.Errorf("flate: %w", err)
	}
	return out, nil
}

func intParam(param dict, key string, def int, resolve func(object) object) int {
	if v, ok := resolve(param[name(key)]).(int64); ok {
		return int(v)
	}
	return def
}

// applyPredictor undoes TIFF predictor 2 and the PNG predictors 10 to 15.
func applyPredictor(data []byte, param dict, resolve func(object) object) ([]byte, error) {
	pred := intParam(param, "Predictor", 1, resolve)
	if pred == 1 {
		return data, nil
	}
	colors := intParam(param, "Colors", 1, resolve)
	bpc := intParam(param, "BitsPerComponent", 8, resolve)
	columns := intParam(param, "Columns", 1, resolve)
	if colors < 1 || bpc < 1 || columns < 1 {
		return nil, fmt.Errorf("predictor: invalid parameters colors=%d bpc=%d columns=%d", colors, bpc, columns)
	}
	bpp := (colors*bpc + 7) / 8
	rowLen := (colors*bpc*columns + 7) / 8

	switch {
	case pred == 2:
		if bpc != 8 {
			return nil, fmt.Errorf("predictor: TIFF predictor needs 8 bits per component, got %d", bpc)
		}
		out := make([]byte, len(data))
		copy(out, data)
		for row := 0; row+rowLen <= len(out); row += rowLen {
			for i := bpp; i < rowLen; i++ {
				out[row+i] += out[row+i-bpp]
			}
		}
		return out, nil
	case pred >= 10 && pred <= 15:
		return pngUnpredict(data, bpp, rowLen)
	}
	return nil, fmt.Errorf("predictor: unsupported predictor %d", pred)
}

// pngUnpredict decodes rows that each start with a PNG filter type byte.
func pngUnpredict(data []byte, bpp, rowLen int) ([]byte, error) {
	stride := rowLen + 1
	if len(data)%stride != 0 {
		logger.Warn(fmt.Sprintf("predictor: %d bytes is not a multiple of row size %d", len(data), stride))
	}
	rows := len(data) / stride
	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		ft := data[r*stride]
		in := data[r*stride+1 : (r+1)*stride]
		cur := out[r*rowLen : (r+1)*rowLen]
		for i := 0; i < rowLen; i++ {
			var left, upLeft byte
			up := prev[i]
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			switch ft {
			case 0:
				cur[i] = in[i]
			case 1:
				cur[i] = in[i] + left
			case 2:
				cur[i] = in[i] + up
			case 3:
				cur[i] = in[i] + byte((int(left)+int(up))/2)
			case 4:
				cur[i] = in[i] + paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("predictor: invalid PNG filter type %d in row %d", ft, r)
			}
		}
		prev = cur
	}
	return out, nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func asciiHexDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data)/2)
	hi := -1
	for _, c := range data {
		if c == '>' {
			break
		}
		if isSpace(c) {
			continue
		}
		x := unhex(c)
		if x < 0 {
			return nil, fmt.Errorf("asciihex: invalid byte %q", c)
		}
		if hi < 0 {
			hi = x
			continue
		}
		out = append(out, byte(hi<<4|x))
		hi = -1
	}
	if hi >= 0 {
		out = append(out, byte(hi<<4))
	}
	return out, nil
}

// alphaReader drops whitespace from an ASCII85 stream and stops at the ~> terminator.
type alphaReader struct {
	r    io.Reader
	done bool
	tail bool // previous byte was '~'
}

func newAlphaReader(r io.Reader) *alphaReader {
	return &alphaReader{r: r}
}

func (a *alphaReader) Read(p []byte) (int, error) {
	for {
		if a.done {
			return 0, io.EOF
		}
		n, err := a.r.Read(p)
		m := 0
		for i := 0; i < n; i++ {
			c := p[i]
			if a.tail {
				a.tail = false
				if c == '>' {
					a.done = true
					break
				}
				p[m] = '~'
				m++
			}
			switch {
			case c == '~':
				a.tail = true
			case isSpace(c):
			default:
				p[m] = c
				m++
			}
		}
		if m > 0 || err != nil {
			if err == io.EOF && m > 0 {
				err = nil
			}
			return m, err
		}
	}
}

func ascii85Decode(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(bytes.TrimLeft(data, " \t\r\n\f\x00"), []byte("<~"))
	out, err := io.ReadAll(ascii85.NewDecoder(newAlphaReader(bytes.NewReader(data))))
	if err != nil {
		return nil, fmt.Errorf("ascii85: %w", err)
	}
	return out, nil
}

func runLengthDecode(data []byte) ([]byte, error) {
	var out []byte
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		switch {
		case n == 128:
			return out, nil
		case n < 128:
			if i+n+1 > len(data) {
				return nil, fmt.Errorf("runlength: literal run past end of data")
			}
			out = append(out, data[i:i+n+1]...)
			i += n + 1
		default:
			if i >= len(data) {
				return nil, fmt.Errorf("runlength: repeat run past end of data")
			}
			out = append(out, bytes.Repeat(data[i:i+1], 257-n)...)
			i++
		}
	}
	return out, nil
}

// readStreamBytes reads the raw bytes of a stream whose data starts at off.
// A negative or wrong length falls back to scanning for the endstream keyword.
func readStreamBytes(f io.ReaderAt, size, off, length int64) ([]byte, error) {
	if off < 0 || off > size {
		return nil, fmt.Errorf("%w: stream data offset %d outside file", ErrSyntax, off)
	}
	if length >= 0 && off+length <= size {
		buf := make([]byte, length)
		if n, _ := f.ReadAt(buf, off); int64(n) == length && endstreamAt(f, size, off+length) {
			return buf, nil
		}
		logger.Warn(fmt.Sprintf("stream at %d: Length %d does not reach endstream, scanning", off, length))
	}
	return scanEndstream(f, size, off)
}

var endstreamKeyword = []byte("endstream")

func endstreamAt(f io.ReaderAt, size, off int64) bool {
	buf := make([]byte, 32)
	if off+int64(len(buf)) > size {
		buf = buf[:size-off]
	}
	n, _ := f.ReadAt(buf, off)
	return bytes.HasPrefix(bytes.TrimLeft(buf[:n], " \t\r\n\f\x00"), endstreamKeyword)
}

func scanEndstream(f io.ReaderAt, size, off int64) ([]byte, error) {
	const chunk = 64 << 10
	var data []byte
	for pos := off; pos < size; {
		n := int64(chunk)
		if pos+n > size {
			n = size - pos
		}
		buf := make([]byte, n)
		m, err := f.ReadAt(buf, pos)
		if m == 0 && err != nil {
			break
		}
		from := len(data) - len(endstreamKeyword)
		if from < 0 {
			from = 0
		}
		data = append(data, buf[:m]...)
		pos += int64(m)
		if i := bytes.Index(data[from:], endstreamKeyword); i >= 0 {
			data = data[:from+i]
			switch {
			case bytes.HasSuffix(data, []byte("\r\n")):
				data = data[:len(data)-2]
			case bytes.HasSuffix(data, []byte("\n")), bytes.HasSuffix(data, []byte("\r")):
				data = data[:len(data)-1]
			}
			return data, nil
		}
	}
	logger.Error(fmt.Sprintf("stream at %d: endstream not found", off))
	return nil, fmt.Errorf("%w: stream at %d has no endstream", ErrSyntax, off)
}
