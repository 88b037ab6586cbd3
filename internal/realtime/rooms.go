package realtime

import (
	"fmt"
	"strings"
)

const (
	hospitalRoomPrefix = "hospital-"
	roleRoomPrefix     = "role-"
	userRoomPrefix     = "user-"
)

func HospitalRoom(hospitalID uint) string { return fmt.Sprintf("%s%d", hospitalRoomPrefix, hospitalID) }

func RoleRoom(role string) string { return roleRoomPrefix + role }

func UserRoom(userID uint) string { return fmt.Sprintf("%s%d", userRoomPrefix, userID) }

// Identity is the verified triple bound to a connection at handshake time.
type Identity struct {
	UserID     uint
	HospitalID uint
	Role       string
}

// Rooms lists the tenant, role and user rooms a connection with this identity joins.
func (i Identity) Rooms() []string {
	return []string{HospitalRoom(i.HospitalID), RoleRoom(i.Role), UserRoom(i.UserID)}
}

func validRoom(room string) bool {
	for _, prefix := range []string{hospitalRoomPrefix, roleRoomPrefix, userRoomPrefix} {
		if rest, ok := strings.CutPrefix(room, prefix); ok {
			return rest != "" && rest != "0"
		}
	}
	return false
}
