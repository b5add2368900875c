package module

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"tubelytics/internal/platform/config"
	perr "tubelytics/internal/platform/errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// Options holds configuration for the tubelytics module
type Options struct {
	PollInterval   time.Duration `json:"TUBELYTICS_POLL_INTERVAL" validate:"gte=10ms"`
	ResultLimit    int           `json:"TUBELYTICS_RESULT_LIMIT" validate:"gte=1,lte=50"`
	RecentVideos   int           `json:"TUBELYTICS_RECENT_VIDEOS" validate:"gte=1,lte=50"`
	StreamCapacity int           `json:"TUBELYTICS_STREAM_CAPACITY" validate:"gte=1,lte=1000"`
	HistorySize    int           `json:"TUBELYTICS_HISTORY_SIZE" validate:"gte=1,lte=100"`
	FoldWords      bool          `json:"TUBELYTICS_WORDSTATS_FOLD"`
	AllowedOrigins []string      `json:"TUBELYTICS_ALLOWED_ORIGINS" validate:"dive,required"`

	YouTubeBaseURL    string        `json:"YOUTUBE_BASE_URL" validate:"required,url"`
	YouTubeAPIKey     string        `json:"YOUTUBE_API_KEY" validate:"required"`
	YouTubeRPS        float64       `json:"YOUTUBE_RPS" validate:"gt=0"`
	YouTubeBurst      int           `json:"YOUTUBE_BURST" validate:"gte=1"`
	YouTubeMaxRetries int           `json:"YOUTUBE_MAX_RETRIES" validate:"gte=0,lte=10"`
	YouTubeRetryBase  time.Duration `json:"YOUTUBE_RETRY_BASE" validate:"gte=1ms"`
	YouTubeTimeout    time.Duration `json:"YOUTUBE_TIMEOUT" validate:"gte=100ms"`
	YouTubeEnrichTags bool          `json:"YOUTUBE_ENRICH_TAGS"`

	ChannelTTL time.Duration `json:"REDIS_CHANNEL_TTL" validate:"gte=0"`
}

// FromConfig reads options from config.Conf
func FromConfig(cfg config.Conf) Options {
	tc := cfg.Prefix("TUBELYTICS_")
	yt := cfg.Prefix("YOUTUBE_")
	rc := cfg.Prefix("REDIS_")
	return Options{
		PollInterval:   tc.MayDuration("POLL_INTERVAL", 40*time.Second),
		ResultLimit:    tc.MayInt("RESULT_LIMIT", 10),
		RecentVideos:   tc.MayInt("RECENT_VIDEOS", 10),
		StreamCapacity: tc.MayInt("STREAM_CAPACITY", 10),
		HistorySize:    tc.MayInt("HISTORY_SIZE", 10),
		FoldWords:      tc.MayBool("WORDSTATS_FOLD", false),
		AllowedOrigins: splitList(tc.MayString("ALLOWED_ORIGINS", "")),

		YouTubeBaseURL:    yt.MayURL("BASE_URL", "https://www.googleapis.com/youtube/v3").String(),
		YouTubeAPIKey:     yt.MayString("API_KEY", ""),
		YouTubeRPS:        yt.MayFloat64("RPS", 5),
		YouTubeBurst:      yt.MayInt("BURST", 10),
		YouTubeMaxRetries: yt.MayInt("MAX_RETRIES", 3),
		YouTubeRetryBase:  yt.MayDuration("RETRY_BASE", 500*time.Millisecond),
		YouTubeTimeout:    yt.MayDuration("TIMEOUT", 10*time.Second),
		YouTubeEnrichTags: yt.MayBool("ENRICH_TAGS", true),

		ChannelTTL: rc.MayDuration("CHANNEL_TTL", 15*time.Minute),
	}
}

func splitList(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var (
	vOnce  sync.Once
	vInst  *validator.Validate
	vTrans ut.Translator
)

// validate returns the validator with english messages that name env keys
func validate() (*validator.Validate, ut.Translator) {
	vOnce.Do(func() {
		enLoc := en.New()
		uni := ut.New(enLoc, enLoc)
		vTrans, _ = uni.GetTranslator("en")

		vInst = validator.New(validator.WithRequiredStructEnabled())
		vInst.RegisterTagNameFunc(func(fld reflect.StructField) string {
			if tag := fld.Tag.Get("json"); tag != "" && tag != "-" {
				return tag
			}
			return fld.Name
		})
		_ = en_translations.RegisterDefaultTranslations(vInst, vTrans)
	})
	return vInst, vTrans
}

// Validate reports every invalid option as one invalid_argument error
func (o Options) Validate() error {
	v, trans := validate()
	err := v.Struct(o)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "tubelytics options")
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(trans))
	}
	return perr.InvalidArgf("tubelytics options: %s", strings.Join(msgs, "; "))
}
