// bufferio 按类型列表将文本值编码写入文件，或将文件解码为文本。
//
// 用法：
//
//	bufferio [--config path] encode <file> <schema> <values...>
//	bufferio [--config path] decode <file> <schema>
//	bufferio [--config path] hexdump <file>
//
// schema 为以空白分隔的类型列表，例如 "u32 u32 string vec<i64>"。
package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/lk2023060901/bufferio-go/application"
	"github.com/lk2023060901/bufferio-go/internal/schema"
	"github.com/lk2023060901/bufferio-go/pkg/buffer/binary"
	"github.com/lk2023060901/bufferio-go/pkg/log"
	"github.com/lk2023060901/bufferio-go/pkg/util/merr"
)

const usage = `usage:
  bufferio [--config path] encode <file> <schema> <values...>
  bufferio [--config path] decode <file> <schema>
  bufferio [--config path] hexdump <file>`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Error("bufferio failed", zap.Error(err))
		_ = log.Sync()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	_ = log.Sync()
}

func run(args []string, stdout io.Writer) error {
	app := application.New(args)
	if err := app.Run(); err != nil {
		return err
	}

	rest := app.Args()
	if len(rest) == 0 {
		return merr.WrapErrParameterMissing("command", usage)
	}
	cmd, rest := rest[0], rest[1:]
	switch cmd {
	case "encode":
		if len(rest) < 2 {
			return merr.WrapErrParameterMissing("file and schema", usage)
		}
		return encode(app, rest[0], rest[1], rest[2:])
	case "decode":
		if len(rest) != 2 {
			return merr.WrapErrParameterInvalid(2, len(rest), usage)
		}
		return decode(app, rest[0], rest[1], stdout)
	case "hexdump":
		if len(rest) != 1 {
			return merr.WrapErrParameterInvalid(1, len(rest), usage)
		}
		return hexdump(rest[0], stdout)
	default:
		return merr.WrapErrParameterInvalidMsg("unknown command %q\n%s", cmd, usage)
	}
}

func encode(app *application.Application, path, schemaText string, values []string) error {
	s, err := schema.Parse(schemaText)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return merr.WrapErrIoFailed("create", err)
	}

	w := binary.NewWriter(f, app.BufferOptions("encode")...)
	encErr := s.Encode(w, values)
	n, lenErr := w.Len()
	if err := merr.Combine(encErr, lenErr, f.Close()); err != nil {
		return err
	}
	app.Logger("encode").Info("file encoded",
		zap.String("file", path),
		zap.Stringer("schema", s),
		zap.Int64("bytes", n))
	return nil
}

func decode(app *application.Application, path, schemaText string, stdout io.Writer) error {
	s, err := schema.Parse(schemaText)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return merr.WrapErrIoFailed("open", err)
	}
	defer f.Close()

	r := binary.NewReader(f, app.BufferOptions("decode")...)
	values, err := s.Decode(r)
	if err != nil {
		return err
	}
	for _, v := range values {
		if _, err := fmt.Fprintln(stdout, v); err != nil {
			return merr.WrapErrIoFailed("print", err)
		}
	}
	if rem, err := r.Remaining(); err == nil && rem > 0 {
		app.Logger("decode").Warn("trailing bytes after decode",
			zap.String("file", path),
			zap.Int64("remaining", rem))
	}
	return nil
}

func hexdump(path string, stdout io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return merr.WrapErrIoFailed("open", err)
	}
	defer f.Close()

	d := hex.Dumper(stdout)
	if _, err := io.Copy(d, f); err != nil {
		return merr.WrapErrIoFailed("hexdump", err)
	}
	return d.Close()
}
