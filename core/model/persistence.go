package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/YuminosukeSato/linreg/pkg/errors"
)

// ComputeChecksum は Checksum フィールドを空にしたレコードのコンパクトJSONに対する
// xxhash64 を16進文字列で返す
func ComputeChecksum(r *ModelRecord) (string, error) {
	unsigned := *r
	unsigned.Checksum = ""
	data, err := json.Marshal(&unsigned)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(data)), nil
}

// SaveRecord はレコードをファイルに保存する
//
// チェックサムはエンコード時に計算され、rec 自体は変更されない。
func SaveRecord(rec *ModelRecord, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.NewIOError("SaveRecord", filename, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.NewIOError("SaveRecord", filename, cerr)
		}
	}()

	if err := EncodeRecord(rec, file); err != nil {
		var ioErr *errors.IOError
		if errors.As(err, &ioErr) {
			ioErr.Path = filename
		}
		return err
	}
	return nil
}

// EncodeRecord はレコードをインデント付きJSONとして w に書き込む
func EncodeRecord(rec *ModelRecord, w io.Writer) error {
	if err := rec.Validate(); err != nil {
		return errors.NewModelError("EncodeRecord", "invalid model record", err)
	}

	signed := rec.Clone()
	signed.Format = FormatName
	signed.FormatVersion = FormatVersion
	sum, err := ComputeChecksum(signed)
	if err != nil {
		return errors.NewModelError("EncodeRecord", "cannot encode model", err)
	}
	signed.Checksum = sum

	data, err := signed.ToJSON()
	if err != nil {
		return errors.NewModelError("EncodeRecord", "cannot encode model", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return errors.NewIOError("EncodeRecord", "", err)
	}
	return nil
}

// LoadRecord はファイルからレコードを読み込む
func LoadRecord(filename string) (*ModelRecord, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.NewIOError("LoadRecord", filename, err)
	}
	defer file.Close()
	return DecodeRecord(file, filename)
}

// DecodeRecord は r からレコードを読み込み、形式・バージョン・チェックサム・形状を検証する
//
// name はエラーメッセージにのみ使われる。
func DecodeRecord(r io.Reader, name string) (*ModelRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIOError("DecodeRecord", name, err)
	}

	rec := &ModelRecord{}
	if err := rec.FromJSON(data); err != nil {
		return nil, errors.WrapFormatError("DecodeRecord", name, 0, "invalid JSON", err)
	}
	if rec.Format != FormatName {
		return nil, errors.NewFormatError("DecodeRecord", name, 0, fmt.Sprintf("not a model file (format %q)", rec.Format))
	}
	if rec.FormatVersion != FormatVersion {
		return nil, errors.NewFormatError("DecodeRecord", name, 0,
			fmt.Sprintf("unsupported format version %d (want %d)", rec.FormatVersion, FormatVersion))
	}

	sum, err := ComputeChecksum(rec)
	if err != nil {
		return nil, errors.WrapFormatError("DecodeRecord", name, 0, "cannot verify checksum", err)
	}
	if rec.Checksum != sum {
		return nil, errors.NewFormatError("DecodeRecord", name, 0,
			fmt.Sprintf("checksum mismatch (stored %q, computed %q)", rec.Checksum, sum))
	}

	if err := rec.Validate(); err != nil {
		return nil, errors.WrapFormatError("DecodeRecord", name, 0, "inconsistent model record", err)
	}
	return rec, nil
}
