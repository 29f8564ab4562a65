package tools

import (
	"io"
	"os"

	id3v2 "github.com/bogem/id3v2/v2"
)

// OverrideArtist copies src to dst and rewrites the artist tag in place.
// Used for channel-native downloads, where yt-dlp's embedded metadata keeps
// the uploader string instead of the channel name. dst is removed again if
// tagging fails.
func OverrideArtist(src, dst, artist string) error {
	if err := copyFile(src, dst); err != nil {
		return err
	}

	tag, err := id3v2.Open(dst, id3v2.Options{Parse: true})
	if err != nil {
		os.Remove(dst)
		return err
	}
	defer tag.Close()

	tag.SetArtist(artist)
	if err := tag.Save(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
