package utils

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SupportAudioExt checks if audio ext is supported
func SupportAudioExt(ext string) bool {
	switch ext {
	case ".wav", ".mp3", ".mp4", ".m4a", ".ogg", ".webm", ".wma",
		".dss", ".ds2", ".dvf", ".msv", ".svd":
		return true
	}
	return false
}

// AudioMime maps a file extension to the mime type sent to the transcription service
func AudioMime(ext string) string {
	switch strings.ToLower(ext) {
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".mp4", ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".webm":
		return "audio/webm"
	}
	return "application/octet-stream"
}

// MakeFileName joins ID and file name to object storage path
func MakeFileName(ID, name string) string {
	if ID == "" {
		return name
	}
	return ID + "/" + name
}

// MakeValidateFileName sanitizes name and joins it with ID
func MakeValidateFileName(ID, name string) (string, error) {
	fn := filepath.Base(filepath.Clean(name))
	if fn == "" || fn == "." || fn == ".." || fn == string(filepath.Separator) {
		return "", fmt.Errorf("wrong file name '%s'", name)
	}
	ext := filepath.Ext(fn)
	fn = strings.TrimSuffix(fn, ext) + strings.ToLower(ext)
	fn = strings.ReplaceAll(fn, " ", "_")
	return MakeFileName(ID, fn), nil
}
