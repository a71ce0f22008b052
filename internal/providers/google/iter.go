package google

import (
	"iter"

	"google.golang.org/genai"
)

// iterPull adapts genai's push-style iter.Seq2 stream to a pull-style
// next()/stop() pair so googleStream can implement providers.Stream's
// pull-based Next method without buffering the whole stream up front.
func iterPull(seq iter.Seq2[*genai.GenerateContentResponse, error]) (func() (*genai.GenerateContentResponse, error, bool), func()) {
	next, stop := iter.Pull2(seq)
	return func() (*genai.GenerateContentResponse, error, bool) {
		resp, err, ok := next()
		return resp, err, ok
	}, stop
}
