package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/RecoveryAshes/bilispy/internal/utils"
)

var gzipMagic = []byte{0x1f, 0x8b}

// decompressResponse 根据 Content-Encoding 解压响应体
// colly 已经解过 gzip 但保留了响应头, 因此 gzip 只在魔数匹配时再解一次
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encoding := strings.ToLower(strings.TrimSpace(contentEncoding))

	switch encoding {
	case "gzip":
		if !bytes.HasPrefix(body, gzipMagic) {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()
		return readAll(reader, "gzip")

	case "deflate":
		// 服务端常把 zlib 封装的数据也标成 deflate
		reader, err := newDeflateReader(body)
		if err != nil {
			return nil, err
		}
		defer reader.Close()
		return readAll(reader, "deflate")

	case "br":
		return readAll(brotli.NewReader(bytes.NewReader(body)), "brotli")

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", contentEncoding)
		return body, nil
	}
}

func readAll(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s读取失败: %w", name, err)
	}
	return data, nil
}

// decodeUTF8 按 UTF-8 解码, 非法字节替换为 U+FFFD
func decodeUTF8(body []byte) ([]byte, error) {
	reader, err := charset.NewReaderLabel("utf-8", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return readAll(reader, "utf-8")
}

// newDeflateReader 兼容 zlib 头和裸 deflate 两种格式
func newDeflateReader(body []byte) (io.ReadCloser, error) {
	if len(body) >= 2 && body[0]&0x0f == 8 && (uint16(body[0])<<8|uint16(body[1]))%31 == 0 {
		reader, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("deflate解压失败: %w", err)
		}
		return reader, nil
	}
	return flate.NewReader(bytes.NewReader(body)), nil
}
