package utils

import (
	"testing"
)

func TestMakeValidateFileName(t *testing.T) {
	type args struct {
		ID       string
		fileName string
	}
	tests := []struct {
		name    string
		args    args
		want    string
		wantErr bool
	}{
		{name: "OK", args: args{ID: "2", fileName: "olia.wav"}, want: "2/olia.wav", wantErr: false},
		{name: "OK dot", args: args{ID: "2", fileName: "./olia.wav"}, want: "2/olia.wav", wantErr: false},
		{name: "OK path", args: args{ID: "2", fileName: "./../olia.wav"}, want: "2/olia.wav", wantErr: false},
		{name: "OK upper", args: args{ID: "2", fileName: "./1/Olia.WAV"}, want: "2/Olia.wav", wantErr: false},
		{name: "OK space", args: args{ID: "2", fileName: "./1/Olia one.WAV"}, want: "2/Olia_one.wav", wantErr: false},
		{name: "No ID", args: args{ID: "", fileName: "./1/Olia one.WAV"}, want: "Olia_one.wav", wantErr: false},
		{name: "Fail", args: args{ID: "2", fileName: ".."}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MakeValidateFileName(tt.args.ID, tt.args.fileName)
			if (err != nil) != tt.wantErr {
				t.Errorf("MakeValidateFileName() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("MakeValidateFileName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSupportAudioExt(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{ext: ".wav", want: true},
		{ext: ".mp3", want: true},
		{ext: ".m4a", want: true},
		{ext: ".dss", want: true},
		{ext: ".ds2", want: true},
		{ext: ".zip", want: false},
		{ext: ".txt", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := SupportAudioExt(tt.ext); got != tt.want {
				t.Errorf("SupportAudioExt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAudioMime(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{ext: ".wav", want: "audio/wav"},
		{ext: ".MP3", want: "audio/mpeg"},
		{ext: ".m4a", want: "audio/mp4"},
		{ext: ".dss", want: "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := AudioMime(tt.ext); got != tt.want {
				t.Errorf("AudioMime() = %v, want %v", got, tt.want)
			}
		})
	}
}
