package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"natours/errs"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

const (
	userPhotoSize   = 500
	tourImageWidth  = 2000
	tourImageHeight = 1333
	jpegQuality     = 90
	maxTourImages   = 3
)

var ErrNotAnImage = errs.BadRequest("Not an image! Please upload only images.")

// ImageService resizes uploads to JPEG under Dir/users and Dir/tours.
type ImageService struct {
	Dir string
	now func() time.Time
}

func NewImageService(dir string) *ImageService {
	return &ImageService{Dir: dir, now: time.Now}
}

// ProcessUserPhoto stores a 500x500 crop of r and returns its file name.
func (s *ImageService) ProcessUserPhoto(userID uint, r io.Reader) (string, error) {
	name := fmt.Sprintf("user-%d-%d.jpeg", userID, s.now().UnixMilli())
	if err := s.resize(r, filepath.Join(s.Dir, "users", name), userPhotoSize, userPhotoSize); err != nil {
		return "", err
	}
	return name, nil
}

// ProcessTourImages resizes an optional cover and up to three gallery images
// concurrently. cover is empty when coverSrc is nil.
func (s *ImageService) ProcessTourImages(ctx context.Context, tourID uint, coverSrc io.Reader, gallery []io.Reader) (cover string, images []string, err error) {
	if len(gallery) > maxTourImages {
		return "", nil, errs.BadRequest(fmt.Sprintf("Too many images, at most %d are allowed", maxTourImages))
	}

	ts := s.now().UnixMilli()
	dir := filepath.Join(s.Dir, "tours")
	g, _ := errgroup.WithContext(ctx)

	if coverSrc != nil {
		cover = fmt.Sprintf("tour-%d-%d-cover.jpeg", tourID, ts)
		g.Go(func() error {
			return s.resize(coverSrc, filepath.Join(dir, cover), tourImageWidth, tourImageHeight)
		})
	}

	images = make([]string, len(gallery))
	for i, src := range gallery {
		i, src := i, src
		images[i] = fmt.Sprintf("tour-%d-%d-%d.jpeg", tourID, ts, i+1)
		g.Go(func() error {
			return s.resize(src, filepath.Join(dir, images[i]), tourImageWidth, tourImageHeight)
		})
	}

	if err := g.Wait(); err != nil {
		_ = s.RemoveTourImages(append(images, cover)...)
		return "", nil, err
	}
	return cover, images, nil
}

// RemoveTourImages deletes files written by ProcessTourImages. Empty and
// already missing names are skipped.
func (s *ImageService) RemoveTourImages(names ...string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		err := os.Remove(filepath.Join(s.Dir, "tours", filepath.Base(name)))
		if err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove %s", name)
		}
	}
	return nil
}

func (s *ImageService) resize(r io.Reader, dest string, width, height int) error {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return ErrNotAnImage
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrap(err, "mkdir image dir")
	}
	img = imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	if err := imaging.Save(img, dest, imaging.JPEGQuality(jpegQuality)); err != nil {
		return errors.Wrapf(err, "save %s", filepath.Base(dest))
	}
	return nil
}

// RemoveUserPhotos deletes earlier uploads of a user except keep.
func (s *ImageService) RemoveUserPhotos(userID uint, keep string) error {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "users", fmt.Sprintf("user-%d-*.jpeg", userID)))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if filepath.Base(m) == keep {
			continue
		}
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "remove %s", filepath.Base(m))
		}
	}
	return nil
}

// DecodeBase64Image accepts raw base64 or a data URI such as
// "data:image/png;base64,...." and returns the decoded bytes.
func DecodeBase64Image(s string) (io.Reader, error) {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "base64,"); idx >= 0 {
		s = s[idx+len("base64,"):]
	}
	if s == "" {
		return nil, ErrNotAnImage
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.URLEncoding.DecodeString(s)
		if err != nil {
			return nil, ErrNotAnImage
		}
	}
	return bytes.NewReader(data), nil
}
