package encoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkupEncode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Hello @bob !", want: "Hello @<user:bob> !"},
		{in: "hi @charlie and @dave_2", want: "hi @<user:charlie> and @<user:dave_2>"},
		{in: "link: www.google.de !", want: "link: <url:https://www.google.de> !"},
		{in: "link: https://www.google.de !", want: "link: <url:https://www.google.de> !"},
		{in: "link: http://x.com", want: "link: <url:http://x.com>"},
		{in: "link: google.de !", want: "link: google.de !"},
		{in: "@bob check this http://x.com", want: "@<user:bob> check this <url:http://x.com>"},
		{in: "nothing to see", want: "nothing to see"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Markup{}.Encode(tt.in))
		})
	}
}

func TestPlainEncode(t *testing.T) {
	assert.Equal(t, "hi @bob www.x.com", Plain{}.Encode("hi @bob www.x.com"))
}
