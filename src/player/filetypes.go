package player

import (
	"net/url"
	"os"
	"path"
	"strings"
)

// Filetypes supported by mpv, taken from
// https://github.com/mpv-player/mpv/blob/master/player/external_files.c
var (
	audioFiletypes = []string{
		"mp3", "ogg", "wav", "wma", "m4a", "aac", "ac3", "ape", "flac", "ra",
		"mka", "dts", "opus",
	}
	videoFiletypes = []string{
		"3ga", "3gp", "3gpp", "amv", "asf", "avf", "avi", "bdm", "bdmv", "clpi",
		"cpi", "dat", "divx", "dv", "dvr-ms", "f4v", "flv", "hdmov", "hlv", "letv",
		"lrv", "m1v", "m2t", "m2ts", "m2v", "m3u", "m3u8", "m4v", "mkv", "moov",
		"mov", "mp2", "mp4", "mpe", "mpeg", "mpg", "mpl", "mpls", "mpv", "mqv",
		"mts", "nsv", "ogg", "ogm", "ogv", "ogx", "qt", "qtvr", "ram", "rec",
		"rm", "rmj", "rmm", "rms", "rmvb", "rmx", "rp", "rv", "rvx", "ts", "vcd",
		"vdr", "vob", "vp8", "webm", "wmv", "xspf",
	}
	subtitleFiletypes = []string{
		"sub", "srt", "ass", "ssa", "smi", "rt", "txt", "mks", "vtt", "sup",
	}
)

var (
	audioExts    = extSet(audioFiletypes)
	videoExts    = extSet(videoFiletypes)
	subtitleExts = extSet(subtitleFiletypes)
)

func extSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[e] = struct{}{}
	}
	return set
}

// fileExt extracts the lowercased extension without the leading dot from a
// path or URL. Query strings and fragments of URLs are ignored.
func fileExt(name string) string {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" {
		name = u.Path
	}
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}

// IsAudioFile reports whether the path or URL has a recognized audio
// extension.
func IsAudioFile(name string) bool {
	_, ok := audioExts[fileExt(name)]
	return ok
}

// IsVideoFile reports whether the path or URL has a recognized video
// extension.
func IsVideoFile(name string) bool {
	_, ok := videoExts[fileExt(name)]
	return ok
}

// IsSubtitleFile reports whether the path or URL has a recognized subtitle
// extension.
func IsSubtitleFile(name string) bool {
	_, ok := subtitleExts[fileExt(name)]
	return ok
}

// IsPlayableFile reports whether the path or URL is playable media, i.e. has
// a recognized audio or video extension. Matching is case insensitive and
// involves no I/O.
func IsPlayableFile(name string) bool {
	return IsAudioFile(name) || IsVideoFile(name)
}

// IsDir reports whether the path refers to a directory on the local
// filesystem. Directories are classified by filesystem type, not extension.
func IsDir(name string) bool {
	info, err := os.Stat(localPath(name))
	return err == nil && info.IsDir()
}

// localPath strips a file:// scheme if one is present.
func localPath(name string) string {
	if u, err := url.Parse(name); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return name
}
