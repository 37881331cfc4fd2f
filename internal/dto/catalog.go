package dto

// CreateTimeBlockRequest defines a new time block. Times use "15:04".
type CreateTimeBlockRequest struct {
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// CreateDayRequest defines a day of the week.
type CreateDayRequest struct {
	Name     string `json:"name" validate:"required,max=20"`
	Position int    `json:"position" validate:"required,min=1,max=7"`
}

// CreateDaySlotRequest pairs a day with a time block.
type CreateDaySlotRequest struct {
	DayID       string `json:"dayId" validate:"required"`
	TimeBlockID string `json:"timeBlockId" validate:"required"`
}

// CreateQuarterRequest defines an academic quarter. Dates use "2006-01-02".
type CreateQuarterRequest struct {
	StartDate string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"endDate" validate:"required,datetime=2006-01-02"`
}

// CreateCampusRequest defines a campus.
type CreateCampusRequest struct {
	Address     string  `json:"address" validate:"required,max=200"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=30"`
	Email       *string `json:"email" validate:"omitempty,email"`
}

// CreateDepartmentRequest defines a department.
type CreateDepartmentRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=30"`
	Email       *string `json:"email" validate:"omitempty,email"`
}

// CreateContractRequest defines a contract; a nil hour limit means unlimited.
type CreateContractRequest struct {
	ContractType string `json:"contractType" validate:"required,max=50"`
	HourLimit    *int   `json:"hourLimit" validate:"omitempty,min=0"`
}

// CreateClassroomRequest defines a classroom.
type CreateClassroomRequest struct {
	RoomNumber    string `json:"roomNumber" validate:"required,max=20"`
	Capacity      int    `json:"capacity" validate:"required,min=1"`
	CampusID      string `json:"campusId" validate:"required"`
	ClassroomType string `json:"classroomType" validate:"omitempty,max=50"`
}

// UpdateClassroomCapacityRequest changes a classroom's capacity.
type UpdateClassroomCapacityRequest struct {
	Capacity int `json:"capacity" validate:"required,min=1"`
}

// CreateProgramRequest defines a program.
type CreateProgramRequest struct {
	Name         string  `json:"name" validate:"required,max=100"`
	DepartmentID *string `json:"departmentId"`
}

// CreateStudentGroupRequest defines a student group.
type CreateStudentGroupRequest struct {
	GroupNumber int     `json:"groupNumber" validate:"required,min=1"`
	ProgramID   *string `json:"programId"`
	Capacity    int     `json:"capacity" validate:"required,min=1"`
}

// CreateInstructorRequest defines an instructor.
type CreateInstructorRequest struct {
	FirstName    string  `json:"firstName" validate:"required,max=50"`
	LastName     string  `json:"lastName" validate:"required,max=50"`
	Email        string  `json:"email" validate:"required,email"`
	ContractID   *string `json:"contractId"`
	DepartmentID *string `json:"departmentId"`
}
