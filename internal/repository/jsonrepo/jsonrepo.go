package jsonrepo

import (
	"github.com/duongquang05/marathon-portal/internal/repository"
)

// Open wires every repository to the JSON files under dir.
func Open(dir string) (*repository.Stores, error) {
	s, err := NewStore(dir)
	if err != nil {
		return nil, err
	}
	return &repository.Stores{
		Marathons:      &MarathonRepo{s: s},
		Users:          &UserRepo{s: s},
		Participations: &ParticipationRepo{s: s},
		PassingPoints:  &PassingPointRepo{s: s},
		Tokens:         &TokenRepo{s: s},
		Closer:         s,
		Pinger:         s.Ping,
	}, nil
}
