package encoders

// Encoder names used for H.264 recording.
const (
	NVENC        = "h264_nvenc"
	AMF          = "h264_amf"
	QSV          = "h264_qsv"
	VideoToolbox = "h264_videotoolbox"
	Software     = "libx264"
)

// Profile holds the fixed tuning used when recording with an encoder.
type Profile struct {
	Name        string
	Description string
	Hardware    bool
	// Settings follow -c:v <name> on the command line.
	Settings []string
}

var profiles = map[string]Profile{
	NVENC: {
		Name:        NVENC,
		Description: "NVIDIA NVENC, VBR at highest preset",
		Hardware:    true,
		Settings:    []string{"-preset", "p7", "-rc", "vbr", "-cq", "18", "-b:v", "0"},
	},
	VideoToolbox: {
		Name:        VideoToolbox,
		Description: "Apple VideoToolbox, constant 60 Mbps",
		Hardware:    true,
		Settings:    []string{"-b:v", "60000k"},
	},
	AMF: {
		Name:        AMF,
		Description: "AMD AMF, constant quantizer",
		Hardware:    true,
		Settings:    []string{"-quality", "quality", "-rc", "cqp", "-qp_i", "18", "-qp_p", "18"},
	},
	QSV: {
		Name:        QSV,
		Description: "Intel Quick Sync, global quality",
		Hardware:    true,
		Settings:    []string{"-global_quality", "18"},
	},
	Software: {
		Name:        Software,
		Description: "x264 software encoder, ultrafast CRF 18",
		Settings:    []string{"-preset", "ultrafast", "-crf", "18", "-tune", "stillimage"},
	},
}

// ProfileFor returns the profile for name. Unknown names get the software profile.
func ProfileFor(name string) Profile {
	if p, ok := profiles[name]; ok {
		return p
	}
	return profiles[Software]
}

// Known reports whether name has a dedicated profile.
func Known(name string) bool {
	_, ok := profiles[name]
	return ok
}

// Args returns the encoder selection and tuning arguments for name.
func Args(name string) []string {
	p := ProfileFor(name)
	args := make([]string, 0, len(p.Settings)+2)
	args = append(args, "-c:v", p.Name)
	return append(args, p.Settings...)
}

// Candidates returns the encoders to try on goos, hardware first and
// the software encoder last.
func Candidates(goos string) []string {
	switch goos {
	case "windows":
		return []string{NVENC, AMF, QSV, Software}
	case "darwin":
		return []string{VideoToolbox, Software}
	default:
		return []string{Software}
	}
}
