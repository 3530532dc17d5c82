package xiaohongshu

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveImages makes every path absolute and drops the ones that do not
// exist. It fails with ErrInvalidArgument when nothing is left.
func (s *Service) ResolveImages(paths []string) ([]string, error) {
	valid := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			s.logger.Warn("image path not usable", "path", p, "err", err)
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			s.logger.Warn("image file not found", "path", p)
			continue
		}
		valid = append(valid, abs)
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: no valid image files", ErrInvalidArgument)
	}
	return valid, nil
}

func validatePublish(req PublishRequest) error {
	var missing []string
	if len(req.Images) == 0 {
		missing = append(missing, "images")
	}
	if strings.TrimSpace(req.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(req.Content) == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidArgument, strings.Join(missing, ", "))
	}
	return nil
}

// PublishContent fills in the creator form (images, title, body, tags,
// topics, location, visibility) and leaves it unsubmitted. The publish
// button is never clicked.
func (s *Service) PublishContent(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if err := validatePublish(req); err != nil {
		return nil, err
	}
	images, err := s.ResolveImages(req.Images)
	if err != nil {
		return nil, err
	}
	log := s.logger.With("title", req.Title)
	log.Info("staging note", "images", len(images), "tags", len(req.Tags), "topics", len(req.Topics))

	fail := func(step string, err error) (*PublishResult, error) {
		msg, err := pageFailure(ctx, err, step+" timed out")
		if err != nil {
			return nil, err
		}
		log.Error("staging note failed", "step", step, "err", msg)
		return &PublishResult{Message: fmt.Sprintf("publish failed: %s: %s", step, msg)}, nil
	}

	if err := s.src.Navigate(ctx, CreatorPublishURL); err != nil {
		return fail("open publish page", err)
	}
	if err := s.src.SetFiles(ctx, FileInput, images, s.t.field); err != nil {
		return fail("upload images", err)
	}
	err = waitUntil(ctx, "upload previews", s.t.uploadWait, s.t.poll, func(ctx context.Context) (bool, error) {
		n, err := s.src.Count(ctx, UploadPreview)
		return err == nil && n >= len(images), nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("upload previews did not all appear", "err", err)
	}

	if err := s.src.Fill(ctx, TitleInput, req.Title, s.t.field); err != nil {
		return fail("fill title", err)
	}
	if err := s.src.Fill(ctx, ContentInput, req.Content, s.t.field); err != nil {
		return fail("fill content", err)
	}

	preview := &PublishPreview{
		Title:         req.Title,
		ImageCount:    len(images),
		TagCount:      len(req.Tags),
		TopicCount:    len(req.Topics),
		AppliedTags:   []string{},
		AppliedTopics: []string{},
	}
	for _, tag := range req.Tags {
		if err := s.addTag(ctx, tag); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("adding tag failed", "tag", tag, "err", err)
			continue
		}
		preview.AppliedTags = append(preview.AppliedTags, tag)
	}
	for _, topic := range req.Topics {
		if err := s.addTopic(ctx, topic); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("adding topic failed", "topic", topic, "err", err)
			continue
		}
		preview.AppliedTopics = append(preview.AppliedTopics, topic)
	}

	if req.Location != "" {
		if err := s.setLocation(ctx, req.Location); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("setting location failed", "location", req.Location, "err", err)
		} else {
			preview.Location = req.Location
		}
	}
	if req.IsPrivate {
		if err := s.src.Click(ctx, PrivateToggle, s.t.step); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("setting private visibility failed", "err", err)
		} else {
			preview.IsPrivate = true
		}
	}

	log.Info("note staged", "applied_tags", len(preview.AppliedTags), "applied_topics", len(preview.AppliedTopics))
	return &PublishResult{
		Success: true,
		Message: "note is ready, confirm publishing in the browser",
		Preview: preview,
	}, nil
}

func (s *Service) addTag(ctx context.Context, tag string) error {
	if err := s.src.Click(ctx, AddTagButton, s.t.step); err != nil {
		return err
	}
	if err := s.src.Fill(ctx, TagInput, tag, s.t.step); err != nil {
		return err
	}
	return s.src.Press(ctx, "Enter")
}

func (s *Service) addTopic(ctx context.Context, topic string) error {
	if err := s.src.Click(ctx, AddTopicButton, s.t.step); err != nil {
		return err
	}
	if err := s.src.Fill(ctx, TopicInput, topic, s.t.step); err != nil {
		return err
	}
	return s.src.Click(ctx, TopicItem, s.t.step)
}

func (s *Service) setLocation(ctx context.Context, location string) error {
	if err := s.src.Click(ctx, LocationButton, s.t.step); err != nil {
		return err
	}
	if err := s.src.Fill(ctx, LocationInput, location, s.t.step); err != nil {
		return err
	}
	return s.src.Click(ctx, LocationItem, s.t.step)
}
