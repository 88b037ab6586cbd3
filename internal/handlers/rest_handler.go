package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"emrSocket/internal/errs"
	"emrSocket/internal/logger"
	"emrSocket/internal/models"
	"emrSocket/internal/msgs"
	"emrSocket/internal/services"
	"emrSocket/internal/utils"
)

type RestHandler struct {
	authService         *services.AuthenticationService
	notificationService *services.NotificationService
	chatService         *services.ChatService
	presenceService     *services.PresenceService
	broadcastService    *services.BroadcastService
	fileManagerService  *services.FileManagerService
	log                 *logger.Logger
}

func NewRestHandler(
	authService *services.AuthenticationService,
	notificationService *services.NotificationService,
	chatService *services.ChatService,
	presenceService *services.PresenceService,
	broadcastService *services.BroadcastService,
	fileManagerService *services.FileManagerService,
	log *logger.Logger,
) *RestHandler {
	return &RestHandler{
		authService:         authService,
		notificationService: notificationService,
		chatService:         chatService,
		presenceService:     presenceService,
		broadcastService:    broadcastService,
		fileManagerService:  fileManagerService,
		log:                 log.With("component", "RestHandler"),
	}
}

// Healthz godoc
// @Summary      Liveness probe
// @Tags         system
// @Produce      json
// @Success      200  {object}  models.Response
// @Router       /healthz [get]
func (rh *RestHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: msgs.MsgOperationSuccessful,
	})
}

// Login godoc
// @Summary      Login staff user
// @Description  Exchanges email and password for a session token carrying user, hospital and role
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.LoginRequestBody  true  "Credentials"
// @Success      200   {object}  models.Response{data=models.LoginResponse}
// @Failure      400   {object}  models.Response
// @Failure      401   {object}  models.Response
// @Router       /api/auth/login [post]
func (rh *RestHandler) Login(ctx *gin.Context) {
	var loginData models.LoginRequestBody
	if err := ctx.ShouldBindJSON(&loginData); err != nil {
		rh.log.Debug("login body binding failed", "error", err)
		abortWithErrors(ctx, http.StatusBadRequest, msgs.MsgOperationFailed, errs.ErrInvalidRequestBody)
		return
	}

	loginResponse, loginErrs := rh.authService.Login(ctx.Request.Context(), &loginData)
	if len(loginErrs) > 0 {
		abortWithErrors(ctx, statusFor(loginErrs[0]), msgs.MsgOperationFailed, loginErrs...)
		return
	}

	ctx.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: msgs.MsgOperationSuccessful,
		Data:    loginResponse,
	})
}

// GetNotifications godoc
// @Summary      List notifications
// @Description  Notifications addressed to the caller or to the caller's whole hospital
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        page  query     int  false  "Page"
// @Param        size  query     int  false  "Page size"
// @Success      200   {object}  models.Response{data=models.PaginatedResponse}
// @Failure      401   {object}  models.Response
// @Router       /api/notifications [get]
func (rh *RestHandler) GetNotifications(ctx *gin.Context) {
	page, size := utils.GetPagination(ctx)
	response, err := rh.notificationService.List(ctx.Request.Context(), identityFromContext(ctx), page, size)
	if err != nil {
		rh.log.Error("failed to list notifications", "error", err)
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: msgs.MsgOperationSuccessful,
		Data:    response,
	})
}

// CreateNotification godoc
// @Summary      Send a notification
// @Description  Stores the notification and pushes notification:new to the target user, or to the caller's hospital when no target is given
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.CreateNotificationRequestBody  true  "Notification"
// @Success      201   {object}  models.Response{data=models.NotificationResponse}
// @Failure      400   {object}  models.Response
// @Failure      404   {object}  models.Response
// @Router       /api/notifications [post]
func (rh *RestHandler) CreateNotification(ctx *gin.Context) {
	var body models.CreateNotificationRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		abortWithErrors(ctx, http.StatusBadRequest, msgs.MsgOperationFailed, errs.ErrInvalidRequestBody)
		return
	}

	response, err := rh.notificationService.Send(ctx.Request.Context(), identityFromContext(ctx), &body)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, models.Response{
		Success: true,
		Message: msgs.MsgNotificationSent,
		Data:    response,
	})
}

// MarkNotificationRead godoc
// @Summary      Mark a notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Notification ID"
// @Success      200  {object}  models.Response{data=models.Notification}
// @Failure      404  {object}  models.Response
// @Router       /api/notifications/{id}/read [patch]
func (rh *RestHandler) MarkNotificationRead(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		abortWithErrors(ctx, http.StatusBadRequest, msgs.MsgOperationFailed, errs.ErrInvalidParams)
		return
	}

	notification, err := rh.notificationService.MarkRead(ctx.Request.Context(), identityFromContext(ctx), uint(id))
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: msgs.MsgOperationSuccessful,
		Data:    notification,
	})
}

// SendChatMessage godoc
// @Summary      Send a chat message
// @Description  Stores the message and pushes chat:message:new to the receiver, or to the caller's hospital channel
// @Tags         chat
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.SendChatMessageRequestBody  true  "Message"
// @Success      201   {object}  models.Response{data=models.ChatMessageResponse}
// @Failure      400   {object}  models.Response
// @Failure      404   {object}  models.Response
// @Router       /api/chat/messages [post]
func (rh *RestHandler) SendChatMessage(ctx *gin.Context) {
	var body models.SendChatMessageRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		abortWithErrors(ctx, http.StatusBadRequest, msgs.MsgOperationFailed, errs.ErrInvalidRequest)
		return
	}

	response, err := rh.chatService.SendMessage(ctx.Request.Context(), identityFromContext(ctx), &body)
	if err != nil {
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, models.Response{
		Success: true,
		Message: msgs.MsgMessageSent,
		Data:    response,
	})
}

// GetChatMessages godoc
// @Summary      Chat history
// @Description  Direct conversation with the given user, or the hospital channel when `with` is omitted
// @Tags         chat
// @Produce      json
// @Security     BearerAuth
// @Param        with  query     int  false  "Other user ID"
// @Param        page  query     int  false  "Page"
// @Param        size  query     int  false  "Page size"
// @Success      200   {object}  models.Response{data=models.PaginatedResponse}
// @Failure      400   {object}  models.Response
// @Router       /api/chat/messages [get]
func (rh *RestHandler) GetChatMessages(ctx *gin.Context) {
	var with *uint
	if raw := ctx.Query("with"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			abortWithErrors(ctx, http.StatusBadRequest, msgs.MsgOperationFailed, errs.ErrInvalidParams)
			return
		}
		other := uint(id)
		with = &other
	}

	page, size := utils.GetPagination(ctx)
	response, err := rh.chatService.GetHistory(ctx.Request.Context(), identityFromContext(ctx), with, page, size)
	if err != nil {
		rh.log.Error("failed to load chat history", "error", err)
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: msgs.MsgOperationSuccessful,
		Data:    response,
	})
}

// UploadChatAttachment godoc
// @Summary      Upload a chat attachment
// @Description  Stores the file in object storage and returns its public URL
// @Tags         chat
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "Attachment"
// @Success      200   {object}  models.Response{data=string}
// @Failure      400   {object}  models.Response
// @Failure      503   {object}  models.Response
// @Router       /api/chat/attachments [post]
func (rh *RestHandler) UploadChatAttachment(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		abortWithErrors(ctx, http.StatusBadRequest, msgs.MsgOperationFailed, errs.ErrNoFileUploaded)
		return
	}

	src, err := file.Open()
	if err != nil {
		abortWithErrors(ctx, http.StatusInternalServerError, msgs.MsgOperationFailed, errs.ErrUnableToOpenUploadedFile)
		return
	}
	defer src.Close()

	identity := identityFromContext(ctx)
	url, err := rh.fileManagerService.UploadChatAttachment(
		ctx.Request.Context(),
		identity.HospitalID,
		file.Filename,
		src,
		file.Size,
		file.Header.Get("Content-Type"),
	)
	if err != nil {
		rh.log.Warn("attachment upload failed", "userID", identity.UserID, "error", err)
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: msgs.MsgOperationSuccessful,
		Data:    url,
	})
}

// GetOnlineUsers godoc
// @Summary      Online staff
// @Description  Staff of the caller's hospital with at least one live connection
// @Tags         presence
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.Response{data=[]models.StaffUserResponse}
// @Router       /api/presence [get]
func (rh *RestHandler) GetOnlineUsers(ctx *gin.Context) {
	users, err := rh.presenceService.OnlineUsers(ctx.Request.Context(), identityFromContext(ctx).HospitalID)
	if err != nil {
		rh.log.Error("failed to load presence", "error", err)
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, models.Response{
		Success: true,
		Message: msgs.MsgOperationSuccessful,
		Data:    users,
	})
}

// Broadcast godoc
// @Summary      Send an announcement
// @Description  super_admin may target any hospital or role room; admin only their own hospital
// @Tags         broadcasts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.BroadcastRequestBody  true  "Announcement"
// @Success      202   {object}  models.Response
// @Failure      400   {object}  models.Response
// @Failure      403   {object}  models.Response
// @Router       /api/broadcasts [post]
func (rh *RestHandler) Broadcast(ctx *gin.Context) {
	var body models.BroadcastRequestBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		abortWithErrors(ctx, http.StatusBadRequest, msgs.MsgOperationFailed, errs.ErrInvalidRequestBody)
		return
	}

	if err := rh.broadcastService.Broadcast(ctx.Request.Context(), identityFromContext(ctx), &body); err != nil {
		if statusFor(err) == http.StatusForbidden {
			abortWithErrors(ctx, http.StatusForbidden, msgs.MsgNotAllowed, err)
			return
		}
		abortWithError(ctx, err)
		return
	}

	ctx.JSON(http.StatusAccepted, models.Response{
		Success: true,
		Message: msgs.MsgBroadcastSent,
	})
}
