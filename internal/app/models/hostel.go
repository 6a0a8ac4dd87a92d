package models

// Hostel embeds its rooms. One hostel is one row so a room change locks a single record.
type Hostel struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name" example:"Ganga Boys Hostel"`
	// Type is e.g. "boys" or "girls"
	Type  string `json:"type" db:"type" example:"boys"`
	Rooms []Room `json:"rooms" db:"rooms"`
	Timestamps
}

// Room is a hostel room and its current residents
type Room struct {
	Number    string     `json:"number" example:"G-101"`
	Capacity  int        `json:"capacity" example:"2"`
	Residents []Resident `json:"residents"`
}

// Resident references a student living in a room
type Resident struct {
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
}

// RoomIndex returns the position of the room with the given number
func (h *Hostel) RoomIndex(number string) (int, bool) {
	for i := range h.Rooms {
		if h.Rooms[i].Number == number {
			return i, true
		}
	}
	return -1, false
}

// ResidentRoom returns the room number the student lives in, if any
func (h *Hostel) ResidentRoom(studentID string) (string, bool) {
	for _, room := range h.Rooms {
		if room.HasResident(studentID) {
			return room.Number, true
		}
	}
	return "", false
}

// IsFull reports whether the room reached its capacity
func (r *Room) IsFull() bool {
	return len(r.Residents) >= r.Capacity
}

// HasResident reports whether the student is listed in the room
func (r *Room) HasResident(studentID string) bool {
	for _, res := range r.Residents {
		if res.StudentID == studentID {
			return true
		}
	}
	return false
}

// RemoveResident drops the student from the room and reports whether it was present
func (r *Room) RemoveResident(studentID string) bool {
	for i, res := range r.Residents {
		if res.StudentID == studentID {
			r.Residents = append(r.Residents[:i], r.Residents[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy
func (h *Hostel) Clone() *Hostel {
	c := *h
	c.Rooms = make([]Room, len(h.Rooms))
	for i, room := range h.Rooms {
		c.Rooms[i] = room
		c.Rooms[i].Residents = append([]Resident(nil), room.Residents...)
	}
	return &c
}
